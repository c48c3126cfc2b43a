// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"net/http"
	"strings"
	"testing"
)

func TestRegistryNames(t *testing.T) {
	r := NewRegistry(testSettings(), http.DefaultClient)
	names := r.Names()
	want := []string{"epo", "google_patents", "pubmed", "uspto"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(testSettings(), http.DefaultClient)

	tests := []struct {
		name     string
		selector string
		want     []string
	}{
		{"single", "pubmed", []string{"pubmed"}},
		{"all", "all", []string{"epo", "google_patents", "pubmed", "uspto"}},
		{"csv", "pubmed,uspto", []string{"pubmed", "uspto"}},
		{"csv with spaces", "pubmed, epo", []string{"pubmed", "epo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scrapers, err := r.Resolve(tt.selector)
			if err != nil {
				t.Fatal(err)
			}
			if len(scrapers) != len(tt.want) {
				t.Fatalf("got %d scrapers, want %d", len(scrapers), len(tt.want))
			}
			for i, s := range scrapers {
				if s.Name() != tt.want[i] {
					t.Errorf("scraper[%d] = %q, want %q", i, s.Name(), tt.want[i])
				}
			}
		})
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry(testSettings(), http.DefaultClient)

	_, err := r.Resolve("wipo")
	if err == nil {
		t.Fatal("expected error for unknown source")
	}
	// The error lists what is available so the operator can fix the flag.
	if !strings.Contains(err.Error(), "pubmed") {
		t.Errorf("error does not list available sources: %v", err)
	}

	if _, err := r.Resolve("pubmed,wipo"); err == nil {
		t.Fatal("expected error for list containing unknown source")
	}
}
