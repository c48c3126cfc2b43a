// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pdiddy/chem-harvest/pkg/types"
)

// Registry maps source names to their scrapers. It is built once at
// startup and read-only afterwards.
type Registry struct {
	scrapers map[string]Scraper
}

// NewRegistry constructs every scraper from the settings and registers it
// under its name. client is shared where a scraper does not need its own
// session; each scraper still owns its rate limiter.
func NewRegistry(cfg types.Settings, client *http.Client) *Registry {
	scrapers := []Scraper{
		NewPubMedScraper(cfg, client),
		NewGooglePatentsScraper(cfg, client),
		NewUSPTOScraper(cfg, client),
		NewEPOScraper(cfg, client),
	}

	r := &Registry{scrapers: make(map[string]Scraper, len(scrapers))}
	for _, s := range scrapers {
		r.scrapers[s.Name()] = s
	}
	return r
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands a source selector (a single name, a comma-separated
// list, or the literal "all") into scrapers. An unknown name is an input
// error reported before any network activity.
func (r *Registry) Resolve(selector string) ([]Scraper, error) {
	var names []string
	if selector == "all" {
		names = r.Names()
	} else {
		for _, name := range strings.Split(selector, ",") {
			names = append(names, strings.TrimSpace(name))
		}
	}

	scrapers := make([]Scraper, 0, len(names))
	for _, name := range names {
		s, ok := r.scrapers[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (available: %s)",
				name, strings.Join(r.Names(), ", "))
		}
		scrapers = append(scrapers, s)
	}
	return scrapers, nil
}
