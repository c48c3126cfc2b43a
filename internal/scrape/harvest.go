// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chem-harvest/internal/jsonl"
)

// RunManifest records what one scraper run produced, written as YAML next
// to the output file so a harvest is reproducible from its artifacts.
type RunManifest struct {
	Source    string        `yaml:"source"`
	Query     ManifestQuery `yaml:"query"`
	Written   int           `yaml:"written"`
	Output    string        `yaml:"output"`
	Timestamp time.Time     `yaml:"timestamp"`
}

// ManifestQuery stores the query parameters in a serializable form.
type ManifestQuery struct {
	Text       string `yaml:"text"`
	MaxResults int    `yaml:"max_results"`
	DateFrom   string `yaml:"date_from,omitempty"`
	DateTo     string `yaml:"date_to,omitempty"`
}

// Harvest drives each scraper in turn: search, then append the batch to
// the output file (the caller's path, or the scraper's default when none
// is given). One scraper's failure never aborts the others; the returned
// total counts only documents actually written.
func Harvest(ctx context.Context, scrapers []Scraper, query Query, outputPath string, w io.Writer) int {
	total := 0
	for _, s := range scrapers {
		fmt.Fprintf(w, "\n--- %s ---\n", s.Name())

		docs, err := s.Search(ctx, query)
		if err != nil {
			fmt.Fprintf(w, "warning: %s failed: %v\n", s.Name(), err)
			continue
		}
		if len(docs) == 0 {
			fmt.Fprintf(w, "no results from %s\n", s.Name())
			continue
		}

		out := outputPath
		if out == "" {
			out = s.DefaultOutputPath()
		}

		written, err := jsonl.Append(out, docs)
		if err != nil {
			fmt.Fprintf(w, "warning: writing %s output failed: %v\n", s.Name(), err)
			continue
		}
		total += written
		fmt.Fprintf(w, "wrote %d documents to %s\n", written, out)

		if err := writeManifest(out, s.Name(), query, written); err != nil {
			fmt.Fprintf(w, "warning: manifest write failed: %v\n", err)
		}
	}
	return total
}

// writeManifest records the run parameters alongside the output file.
func writeManifest(outputPath, source string, query Query, written int) error {
	manifest := RunManifest{
		Source: source,
		Query: ManifestQuery{
			Text:       query.Text,
			MaxResults: query.limit(),
		},
		Written:   written,
		Output:    outputPath,
		Timestamp: time.Now().UTC(),
	}
	if !query.DateFrom.IsZero() {
		manifest.Query.DateFrom = query.DateFrom.Format(dateFmt)
	}
	if !query.DateTo.IsZero() {
		manifest.Query.DateTo = query.DateTo.Format(dateFmt)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(outputPath+".manifest.yaml", data, 0o644)
}
