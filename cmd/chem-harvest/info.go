// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the effective configuration and credential status",
	Run:   runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	cfg := settings()

	fmt.Printf("output dir:    %s\n", cfg.OutputDir)
	fmt.Printf("catalog dir:   %s\n", catalogConfig().CatalogDir)
	fmt.Printf("http timeout:  %s\n", cfg.Timeout)
	fmt.Printf("user agent:    %s\n", cfg.UserAgent)
	fmt.Println()
	fmt.Printf("ncbi api key:  %s (rate limit %.0f req/s)\n", credStatus(cfg.NCBIAPIKey), cfg.NCBIRateLimit())
	fmt.Printf("ncbi email:    %s\n", credStatus(cfg.NCBIEmail))
	fmt.Printf("serpapi key:   %s\n", credStatus(cfg.SerpAPIKey))
	fmt.Printf("uspto api key: %s\n", credStatus(cfg.USPTOAPIKey))
	fmt.Printf("epo key:       %s\n", credStatus(cfg.EPOKey))
	fmt.Printf("epo secret:    %s\n", credStatus(cfg.EPOSecret))
}

// credStatus reports presence without echoing the value.
func credStatus(v string) string {
	if v == "" {
		return "not set"
	}
	return "set"
}
