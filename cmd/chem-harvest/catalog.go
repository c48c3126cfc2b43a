// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chem-harvest/internal/catalog"
	"github.com/pdiddy/chem-harvest/internal/scrape"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the SQLite document catalog (index, lookup)",
	Long: `Catalog maintains a local SQLite database with FTS5 indexing over
harvested documents. Use subcommands to load JSONL files or to run
full-text queries against titles and abstracts.`,
}

// --- index subcommand ---

var catalogIndexCmd = &cobra.Command{
	Use:   "index [files...]",
	Short: "Load harvested JSONL files into the catalog",
	Long: `Index reads the named JSONL files (default: the per-source files under
the output directory) and loads every document into the catalog database.`,
	RunE: runCatalogIndex,
}

func runCatalogIndex(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		cfg := settings()
		registry := scrape.NewRegistry(cfg, nil)
		scrapers, err := registry.Resolve("all")
		if err != nil {
			return err
		}
		for _, s := range scrapers {
			path := s.DefaultOutputPath()
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no harvested files found; run harvest first or name files explicitly")
	}

	store, err := catalog.NewStore(catalogConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	total := 0
	for _, path := range paths {
		n, err := store.IndexFile(ctx, path, os.Stdout)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Printf("indexed %d documents total\n", total)
	return nil
}

// --- lookup subcommand ---

var catalogLookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Full-text search over cataloged titles and abstracts",
	RunE:  runCatalogLookup,
}

func runCatalogLookup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}

	store, err := catalog.NewStore(catalogConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("max-results")
	results, err := store.Lookup(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for _, r := range results {
		date := r.PublicationDate
		if date == "" {
			date = "no date"
		}
		fmt.Printf("[%s] %s\n", r.Source, r.Title)
		fmt.Printf("    %s | %s | %s\n", r.Identifier, date, r.JournalOrOffice)
	}
	return nil
}

func init() {
	catalogLookupCmd.Flags().Int("max-results", 0, "maximum results (default from config)")

	catalogCmd.AddCommand(catalogIndexCmd)
	catalogCmd.AddCommand(catalogLookupCmd)
	rootCmd.AddCommand(catalogCmd)
}
