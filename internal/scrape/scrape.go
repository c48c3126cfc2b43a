// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape acquires records from remote literature and patent
// sources and normalizes them into the unified document schema. Each
// upstream (PubMed, Google Patents, USPTO PatentsView, EPO OPS) gets its
// own Scraper implementation per the Strategy pattern; they share nothing
// but the contract, since every upstream speaks a different protocol.
package scrape

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pdiddy/chem-harvest/pkg/types"
)

// dateFmt is the ISO calendar-date layout used for query bounds.
const dateFmt = "2006-01-02"

// Scraper is the capability contract every source adapter implements.
type Scraper interface {
	// Name is the stable short identifier used for registry lookup and
	// default output naming (e.g. "pubmed").
	Name() string

	// Search executes the upstream search and returns at most
	// query.MaxResults normalized documents in upstream order. Partial
	// results after a page-level failure are a successful outcome.
	Search(ctx context.Context, query Query) ([]types.Document, error)

	// DefaultOutputPath derives a storage location from the scraper name
	// for callers that do not supply one.
	DefaultOutputPath() string
}

// Query holds the search parameters shared by all scrapers.
type Query struct {
	// Text is the free-text search phrase.
	Text string

	// MaxResults caps how many documents Search returns (default 100).
	MaxResults int

	// DateFrom and DateTo are inclusive publication-date bounds. The zero
	// value means unbounded. Each scraper encodes them in its own upstream
	// query syntax.
	DateFrom time.Time
	DateTo   time.Time
}

// limit returns the effective result cap.
func (q Query) limit() int {
	if q.MaxResults <= 0 {
		return 100
	}
	return q.MaxResults
}

// defaultOutputPath joins the configured output root with "<name>.jsonl".
func defaultOutputPath(outputDir, name string) string {
	if outputDir == "" {
		outputDir = "data"
	}
	return filepath.Join(outputDir, name+".jsonl")
}
