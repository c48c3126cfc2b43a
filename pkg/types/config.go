// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "chem-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Settings groups credentials and paths for all scrapers. It is assembled
// once at startup from the config file, environment, and the secrets
// directory, and treated as read-only afterwards.
type Settings struct {
	HTTPConfig `yaml:",inline"`

	// NCBIAPIKey raises the E-utilities quota from 3 to 10 requests per
	// second. Optional.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// NCBIEmail is sent with every E-utilities call per NCBI usage policy.
	NCBIEmail string `json:"ncbi_email" yaml:"ncbi_email"`

	// USPTOAPIKey authenticates against the PatentsView search API. Optional.
	USPTOAPIKey string `json:"uspto_api_key,omitempty" yaml:"uspto_api_key,omitempty"`

	// EPOKey and EPOSecret are the OPS consumer credential pair. The EPO
	// scraper is inactive unless both are set.
	EPOKey    string `json:"epo_key,omitempty" yaml:"epo_key,omitempty"`
	EPOSecret string `json:"epo_secret,omitempty" yaml:"epo_secret,omitempty"`

	// SerpAPIKey selects the structured Google Patents strategy; without it
	// the scraper falls back to HTML scraping.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`

	// OutputDir is the root directory for harvested JSONL files.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// NCBIRateLimit returns the E-utilities quota in requests per second:
// 10 with an API key, 3 without.
func (s Settings) NCBIRateLimit() float64 {
	if s.NCBIAPIKey != "" {
		return 10
	}
	return 3
}

// CatalogConfig holds settings for the SQLite document catalog.
type CatalogConfig struct {
	// CatalogDir is the directory holding the catalog database.
	CatalogDir string `json:"catalog_dir" yaml:"catalog_dir"`

	// MaxResults is the default maximum number of lookup results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
