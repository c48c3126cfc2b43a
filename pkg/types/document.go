// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the chem-harvest pipeline.
// The central type is Document, the unified record shape every scraper
// produces regardless of which upstream API it speaks to.
package types

import (
	"fmt"
	"time"
)

// Source identifies which upstream a document was harvested from.
type Source string

const (
	SourcePubMed        Source = "pubmed"
	SourceGooglePatents Source = "google_patents"
	SourceUSPTO         Source = "uspto"
	SourceEPO           Source = "epo"
)

// knownSources is the closed set of valid Source values.
var knownSources = map[Source]bool{
	SourcePubMed:        true,
	SourceGooglePatents: true,
	SourceUSPTO:         true,
	SourceEPO:           true,
}

// Identifier is a typed document identifier (DOI, PMID, patent number).
// A document may carry several; no uniqueness is enforced.
type Identifier struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Author is one contributor (paper author, inventor, or patent applicant)
// in source order.
type Author struct {
	Name        string `json:"name" yaml:"name"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// Document is the unified schema for papers and patents harvested from any
// source. Documents are constructed once by a scraper's record-mapping
// function and never mutated afterwards.
type Document struct {
	// Source identifies the upstream that produced this record.
	Source Source `json:"source" yaml:"source"`

	// Title is the paper or invention title. A record without a title is
	// dropped by every scraper, so Title is always non-empty.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract or result snippet, when available.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists contributors in the order the source returned them.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// PublicationDate is the publication, grant, or priority date. The zero
	// value means the source supplied no parseable date. Sources that only
	// give a year (or year and month) default the missing components to 1.
	PublicationDate time.Time `json:"publication_date,omitzero" yaml:"publication_date,omitempty"`

	// Identifiers lists typed identifiers (e.g. "pmid", "doi",
	// "patent_number") in extraction order.
	Identifiers []Identifier `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`

	// ChemicalEntities lists substance names extracted from controlled
	// vocabulary headings. Only the PubMed scraper populates this.
	ChemicalEntities []string `json:"chemical_entities,omitempty" yaml:"chemical_entities,omitempty"`

	// FullTextURL links to the record's landing or document page.
	FullTextURL string `json:"full_text_url,omitempty" yaml:"full_text_url,omitempty"`

	// Keywords lists author-supplied terms.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// JournalOrOffice is the journal name or issuing patent office.
	JournalOrOffice string `json:"journal_or_office,omitempty" yaml:"journal_or_office,omitempty"`

	// Metadata holds source-specific fields that do not fit the canonical
	// shape (MeSH headings, CPC/IPC codes, assignees, languages, ...).
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// ScrapedAt is the UTC time the record was normalized, set at
	// construction, never supplied by the upstream.
	ScrapedAt time.Time `json:"scraped_at" yaml:"scraped_at"`
}

// Validate reports whether the document satisfies the schema invariants:
// a non-empty title and a known source.
func (d *Document) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("document has no title")
	}
	if !knownSources[d.Source] {
		return fmt.Errorf("unknown source %q", d.Source)
	}
	return nil
}
