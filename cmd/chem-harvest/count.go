// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chem-harvest/internal/jsonl"
	"github.com/pdiddy/chem-harvest/internal/scrape"
)

var countCmd = &cobra.Command{
	Use:   "count [files...]",
	Short: "Count harvested documents per JSONL file",
	Long: `Count reports how many documents each named JSONL file holds. With no
arguments it counts the default per-source files under the output
directory; a missing file counts as zero.`,
	RunE: runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		cfg := settings()
		registry := scrape.NewRegistry(cfg, nil)
		scrapers, err := registry.Resolve("all")
		if err != nil {
			return err
		}
		for _, s := range scrapers {
			paths = append(paths, s.DefaultOutputPath())
		}
	}

	total := 0
	for _, path := range paths {
		n, err := jsonl.Count(path)
		if err != nil {
			return err
		}
		fmt.Printf("%8d  %s\n", n, path)
		total += n
	}
	fmt.Printf("%8d  total\n", total)
	return nil
}
