// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the chem-harvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chem-harvest/internal/secrets"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "chem-harvest/0.1"
)

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if non-empty, else the secret value for
// key, else "".
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the chem-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "chem-harvest",
	Short: "Harvest chemistry literature and patents into a local corpus",
	Long: `chem-harvest collects chemistry-related documents from PubMed, Google
Patents, the USPTO PatentsView API, and the EPO Open Patent Services, and
normalizes them into a unified JSONL corpus.

Each source is selectable by name; harvested files can be counted, indexed
into a SQLite catalog, and searched with full-text queries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./chem-harvest.yaml or ~/.config/chem-harvest/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chem-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "chem-harvest"))
		}
	}

	viper.SetEnvPrefix("CHEM_HARVEST")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// settings assembles the scraper configuration from the config file, the
// environment, and the secrets directory, in that precedence.
func settings() types.Settings {
	timeout := viper.GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	userAgent := viper.GetString("user_agent")
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	outputDir := viper.GetString("output_dir")
	if outputDir == "" {
		outputDir = "data"
	}

	return types.Settings{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: userAgent,
		},
		NCBIAPIKey:  secretDefault(secrets.NCBIAPIKey, viper.GetString("ncbi_api_key")),
		NCBIEmail:   secretDefault(secrets.NCBIEmail, viper.GetString("ncbi_email")),
		USPTOAPIKey: secretDefault(secrets.USPTOAPIKey, viper.GetString("uspto_api_key")),
		EPOKey:      secretDefault(secrets.EPOKey, viper.GetString("epo_key")),
		EPOSecret:   secretDefault(secrets.EPOSecret, viper.GetString("epo_secret")),
		SerpAPIKey:  secretDefault(secrets.SerpAPIKey, viper.GetString("serpapi_key")),
		OutputDir:   outputDir,
	}
}

func catalogConfig() types.CatalogConfig {
	dir := viper.GetString("catalog_dir")
	if dir == "" {
		dir = "catalog"
	}
	return types.CatalogConfig{
		CatalogDir: dir,
		MaxResults: viper.GetInt("catalog_max_results"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
