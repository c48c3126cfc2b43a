// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/chem-harvest/internal/jsonl"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	store, err := NewStore(types.CatalogConfig{
		CatalogDir: filepath.Join(tmpDir, "catalog"),
		MaxResults: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, tmpDir
}

func testDoc(source types.Source, title, abstract string) types.Document {
	return types.Document{
		Source:   source,
		Title:    title,
		Abstract: abstract,
		Identifiers: []types.Identifier{
			{Type: "pmid", Value: "12345"},
		},
		PublicationDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		JournalOrOffice: "Test Journal",
		ScrapedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func writeHarvest(t *testing.T, tmpDir string, docs []types.Document) string {
	t.Helper()
	path := filepath.Join(tmpDir, "data", "pubmed.jsonl")
	if _, err := jsonl.Append(path, docs); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- tests ---

func TestIndexFileAndCount(t *testing.T) {
	store, tmpDir := testStore(t)
	ctx := context.Background()

	path := writeHarvest(t, tmpDir, []types.Document{
		testDoc(types.SourcePubMed, "Aspirin pharmacokinetics in rats", "A study of salicylate metabolism."),
		testDoc(types.SourcePubMed, "Ibuprofen synthesis routes", "Green chemistry approaches."),
	})

	n, err := store.IndexFile(ctx, path, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("indexed %d documents, want 2", n)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestLookupMatchesTitleAndAbstract(t *testing.T) {
	store, tmpDir := testStore(t)
	ctx := context.Background()

	path := writeHarvest(t, tmpDir, []types.Document{
		testDoc(types.SourcePubMed, "Aspirin pharmacokinetics in rats", "A study of salicylate metabolism."),
		testDoc(types.SourceUSPTO, "Polymer coating composition", "Uses salicylate derivatives for adhesion."),
		testDoc(types.SourceEPO, "Wind turbine blade", "Aerodynamic improvements."),
	})
	if _, err := store.IndexFile(ctx, path, io.Discard); err != nil {
		t.Fatal(err)
	}

	results, err := store.Lookup(ctx, "salicylate", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Title == "Wind turbine blade" {
			t.Errorf("non-matching document returned: %q", r.Title)
		}
	}
}

func TestLookupRespectsLimit(t *testing.T) {
	store, tmpDir := testStore(t)
	ctx := context.Background()

	docs := make([]types.Document, 5)
	for i := range docs {
		docs[i] = testDoc(types.SourcePubMed, "Catalysis review part", "Heterogeneous catalysis survey.")
	}
	path := writeHarvest(t, tmpDir, docs)
	if _, err := store.IndexFile(ctx, path, io.Discard); err != nil {
		t.Fatal(err)
	}

	results, err := store.Lookup(ctx, "catalysis", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestLookupResultFields(t *testing.T) {
	store, tmpDir := testStore(t)
	ctx := context.Background()

	path := writeHarvest(t, tmpDir, []types.Document{
		testDoc(types.SourcePubMed, "Aspirin pharmacokinetics", "Salicylate study."),
	})
	if _, err := store.IndexFile(ctx, path, io.Discard); err != nil {
		t.Fatal(err)
	}

	results, err := store.Lookup(ctx, "aspirin", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Source != "pubmed" {
		t.Errorf("source = %q, want pubmed", r.Source)
	}
	if r.Identifier != "pmid:12345" {
		t.Errorf("identifier = %q, want pmid:12345", r.Identifier)
	}
	if r.PublicationDate != "2024-03-15" {
		t.Errorf("publication date = %q, want 2024-03-15", r.PublicationDate)
	}
	if r.JournalOrOffice != "Test Journal" {
		t.Errorf("journal = %q, want Test Journal", r.JournalOrOffice)
	}
}

func TestIndexFileEmptyFileIsNoop(t *testing.T) {
	store, tmpDir := testStore(t)
	ctx := context.Background()

	n, err := store.IndexFile(ctx, filepath.Join(tmpDir, "missing.jsonl"), io.Discard)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if n != 0 {
		t.Errorf("indexed %d, want 0", n)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
