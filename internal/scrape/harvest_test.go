// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chem-harvest/internal/jsonl"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

// fakeScraper returns canned documents, or an error, without any network.
type fakeScraper struct {
	name   string
	docs   []types.Document
	err    error
	outDir string
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Search(_ context.Context, _ Query) ([]types.Document, error) {
	return f.docs, f.err
}

func (f *fakeScraper) DefaultOutputPath() string {
	return defaultOutputPath(f.outDir, f.name)
}

func fakeDoc(source types.Source, title string) types.Document {
	return types.Document{
		Source:    source,
		Title:     title,
		ScrapedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestHarvest(t *testing.T) {
	tmpDir := t.TempDir()
	scrapers := []Scraper{
		&fakeScraper{name: "pubmed", outDir: tmpDir, docs: []types.Document{
			fakeDoc(types.SourcePubMed, "Paper A"),
			fakeDoc(types.SourcePubMed, "Paper B"),
		}},
		&fakeScraper{name: "uspto", outDir: tmpDir, docs: []types.Document{
			fakeDoc(types.SourceUSPTO, "Patent A"),
		}},
	}

	var log bytes.Buffer
	total := Harvest(context.Background(), scrapers, Query{Text: "x"}, "", &log)
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	// Each scraper wrote its own default file.
	pubmedDocs, err := jsonl.ReadAll(filepath.Join(tmpDir, "pubmed.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pubmedDocs) != 2 {
		t.Errorf("pubmed file holds %d documents, want 2", len(pubmedDocs))
	}
	usptoCount, err := jsonl.Count(filepath.Join(tmpDir, "uspto.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if usptoCount != 1 {
		t.Errorf("uspto file holds %d documents, want 1", usptoCount)
	}
}

func TestHarvestFailureDoesNotAbortOthers(t *testing.T) {
	tmpDir := t.TempDir()
	scrapers := []Scraper{
		&fakeScraper{name: "pubmed", outDir: tmpDir, err: errors.New("upstream down")},
		&fakeScraper{name: "uspto", outDir: tmpDir, docs: []types.Document{
			fakeDoc(types.SourceUSPTO, "Patent A"),
		}},
	}

	var log bytes.Buffer
	total := Harvest(context.Background(), scrapers, Query{Text: "x"}, "", &log)
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if !strings.Contains(log.String(), "warning: pubmed failed") {
		t.Errorf("log missing failure warning: %s", log.String())
	}
}

func TestHarvestEmptyResultWritesNothing(t *testing.T) {
	tmpDir := t.TempDir()
	scrapers := []Scraper{&fakeScraper{name: "epo", outDir: tmpDir}}

	var log bytes.Buffer
	total := Harvest(context.Background(), scrapers, Query{Text: "x"}, "", &log)
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "epo.jsonl")); !os.IsNotExist(err) {
		t.Error("output file created for empty result")
	}
	if !strings.Contains(log.String(), "no results from epo") {
		t.Errorf("log missing empty notice: %s", log.String())
	}
}

func TestHarvestExplicitOutputPath(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "combined.jsonl")
	scrapers := []Scraper{
		&fakeScraper{name: "pubmed", docs: []types.Document{fakeDoc(types.SourcePubMed, "A")}},
		&fakeScraper{name: "uspto", docs: []types.Document{fakeDoc(types.SourceUSPTO, "B")}},
	}

	var log bytes.Buffer
	total := Harvest(context.Background(), scrapers, Query{Text: "x"}, out, &log)
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	// Both scrapers appended to the shared file.
	n, err := jsonl.Count(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("combined file holds %d documents, want 2", n)
	}
}

func TestHarvestWritesManifest(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "run.jsonl")
	scrapers := []Scraper{
		&fakeScraper{name: "pubmed", docs: []types.Document{fakeDoc(types.SourcePubMed, "A")}},
	}
	query := Query{
		Text:       "aspirin",
		MaxResults: 50,
		DateFrom:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	var log bytes.Buffer
	Harvest(context.Background(), scrapers, query, out, &log)

	data, err := os.ReadFile(out + ".manifest.yaml")
	if err != nil {
		t.Fatal(err)
	}
	var manifest RunManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		t.Fatal(err)
	}
	if manifest.Source != "pubmed" {
		t.Errorf("source = %q", manifest.Source)
	}
	if manifest.Query.Text != "aspirin" {
		t.Errorf("query text = %q", manifest.Query.Text)
	}
	if manifest.Query.MaxResults != 50 {
		t.Errorf("max results = %d", manifest.Query.MaxResults)
	}
	if manifest.Query.DateFrom != "2020-01-01" {
		t.Errorf("date from = %q", manifest.Query.DateFrom)
	}
	if manifest.Query.DateTo != "" {
		t.Errorf("date to = %q, want empty", manifest.Query.DateTo)
	}
	if manifest.Written != 1 {
		t.Errorf("written = %d", manifest.Written)
	}
	if manifest.Output != out {
		t.Errorf("output = %q", manifest.Output)
	}
}
