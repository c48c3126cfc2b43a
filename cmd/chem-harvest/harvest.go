// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chem-harvest/internal/scrape"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Search the configured sources and append results to JSONL files",
	Long: `Harvest runs a search against one or more sources (pubmed,
google_patents, uspto, epo, or "all") and appends the normalized documents
to JSONL output files, one per source unless --output names a shared file.
A failing source is reported and skipped; the others still run.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("source", "all", `source name, comma-separated list, or "all"`)
	harvestCmd.Flags().String("query", "", "free-text search phrase (required)")
	harvestCmd.Flags().Int("max-results", 100, "maximum results per source")
	harvestCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	harvestCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	harvestCmd.Flags().String("output", "", "shared output file (default: per-source <output-dir>/<source>.jsonl)")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" {
		return fmt.Errorf("provide a search phrase with --query")
	}

	query := scrape.Query{Text: queryText}
	query.MaxResults, _ = cmd.Flags().GetInt("max-results")

	var err error
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		query.DateFrom, err = time.Parse("2006-01-02", from)
		if err != nil {
			return fmt.Errorf("invalid --from date %q (want YYYY-MM-DD)", from)
		}
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		query.DateTo, err = time.Parse("2006-01-02", to)
		if err != nil {
			return fmt.Errorf("invalid --to date %q (want YYYY-MM-DD)", to)
		}
	}

	cfg := settings()
	client := &http.Client{Timeout: cfg.Timeout}
	registry := scrape.NewRegistry(cfg, client)

	// Selector errors surface before any network activity.
	selector, _ := cmd.Flags().GetString("source")
	scrapers, err := registry.Resolve(selector)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	total := scrape.Harvest(context.Background(), scrapers, query, output, os.Stdout)
	fmt.Printf("\ntotal: %d documents\n", total)
	return nil
}
