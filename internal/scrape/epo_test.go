// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/chem-harvest/pkg/types"
)

const sampleOPSXML = `<?xml version="1.0" encoding="UTF-8"?>
<ops:world-patent-data xmlns:ops="http://ops.epo.org" xmlns="http://www.epo.org/exchange">
  <ops:biblio-search total-result-count="1">
    <ops:search-result>
      <exchange-documents>
        <exchange-document>
          <bibliographic-data>
            <publication-reference>
              <document-id>
                <country>EP</country>
                <doc-number>1234567</doc-number>
                <kind>A1</kind>
                <date>20230615</date>
              </document-id>
            </publication-reference>
            <classifications-ipcr>
              <classification-ipcr><text> A61K  31/00 </text></classification-ipcr>
            </classifications-ipcr>
            <parties>
              <applicants>
                <applicant>
                  <applicant-name><name>ACME PHARMA GMBH</name></applicant-name>
                </applicant>
              </applicants>
            </parties>
            <invention-title lang="de">Pharmazeutische Formulierung</invention-title>
            <invention-title lang="en">Pharmaceutical formulation</invention-title>
          </bibliographic-data>
          <abstract lang="en"><p>An aqueous formulation of aspirin.</p></abstract>
        </exchange-document>
      </exchange-documents>
    </ops:search-result>
  </ops:biblio-search>
</ops:world-patent-data>`

func epoTestSettings() types.Settings {
	cfg := testSettings()
	cfg.EPOKey = "consumer-key"
	cfg.EPOSecret = "consumer-secret"
	return cfg
}

func TestEPOSearchDisabledWithoutCredentials(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))
	defer server.Close()

	oldAuth, oldSearch := epoAuthBase, epoSearchBase
	epoAuthBase = server.URL + "/auth"
	epoSearchBase = server.URL + "/search"
	defer func() { epoAuthBase, epoSearchBase = oldAuth, oldSearch }()

	s := NewEPOScraper(testSettings(), server.Client())
	s.Log = io.Discard

	docs, err := s.Search(context.Background(), Query{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if docs != nil {
		t.Errorf("got %v, want nil", docs)
	}
	if requests != 0 {
		t.Errorf("made %d network requests while disabled, want 0", requests)
	}
}

func TestEPOSearch(t *testing.T) {
	var tokenRequests int
	var searchQuery, searchRange, authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			tokenRequests++
			user, pass, ok := r.BasicAuth()
			if !ok || user != "consumer-key" || pass != "consumer-secret" {
				http.Error(w, "bad credentials", http.StatusUnauthorized)
				return
			}
			if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
				http.Error(w, "bad grant", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"access_token": "tok-1", "expires_in": "1200"}`)
		case "/search":
			searchQuery = r.URL.Query().Get("q")
			searchRange = r.URL.Query().Get("Range")
			authHeader = r.Header.Get("Authorization")
			fmt.Fprint(w, sampleOPSXML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	oldAuth, oldSearch := epoAuthBase, epoSearchBase
	epoAuthBase = server.URL + "/auth"
	epoSearchBase = server.URL + "/search"
	defer func() { epoAuthBase, epoSearchBase = oldAuth, oldSearch }()

	s := NewEPOScraper(epoTestSettings(), server.Client())
	s.Log = io.Discard

	docs, err := s.Search(context.Background(), Query{
		Text:       "aspirin",
		MaxResults: 10,
		DateFrom:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}

	if tokenRequests != 1 {
		t.Errorf("token requests = %d, want 1", tokenRequests)
	}
	if authHeader != "Bearer tok-1" {
		t.Errorf("Authorization = %q", authHeader)
	}
	for _, want := range []string{`ta = "aspirin"`, `cl = "A61K"`, `pd >= "2020-01-01"`, `pd <= "2024-12-31"`} {
		if !strings.Contains(searchQuery, want) {
			t.Errorf("CQL missing %q: %s", want, searchQuery)
		}
	}
	if searchRange != "1-10" {
		t.Errorf("Range = %q, want 1-10", searchRange)
	}

	doc := docs[0]
	if doc.Source != types.SourceEPO {
		t.Errorf("source = %q", doc.Source)
	}
	// The English title wins over the German one.
	if doc.Title != "Pharmaceutical formulation" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Abstract != "An aqueous formulation of aspirin." {
		t.Errorf("abstract = %q", doc.Abstract)
	}
	if len(doc.Identifiers) != 1 || doc.Identifiers[0].Value != "EP1234567A1" {
		t.Errorf("identifiers = %v", doc.Identifiers)
	}
	want := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	if !doc.PublicationDate.Equal(want) {
		t.Errorf("publication date = %v, want %v", doc.PublicationDate, want)
	}
	if len(doc.Authors) != 1 || doc.Authors[0].Name != "ACME PHARMA GMBH" {
		t.Errorf("authors = %v", doc.Authors)
	}
	ipc, ok := doc.Metadata["ipc_codes"].([]string)
	if !ok || len(ipc) != 1 || ipc[0] != "A61K  31/00" {
		t.Errorf("ipc_codes = %v", doc.Metadata["ipc_codes"])
	}
	if doc.JournalOrOffice != "EPO" {
		t.Errorf("office = %q", doc.JournalOrOffice)
	}
}

func TestEPOTokenCachedAcrossSearches(t *testing.T) {
	tokenRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			tokenRequests++
			fmt.Fprint(w, `{"access_token": "tok", "expires_in": "1200"}`)
			return
		}
		fmt.Fprint(w, sampleOPSXML)
	}))
	defer server.Close()

	oldAuth, oldSearch := epoAuthBase, epoSearchBase
	epoAuthBase = server.URL + "/auth"
	epoSearchBase = server.URL + "/search"
	defer func() { epoAuthBase, epoSearchBase = oldAuth, oldSearch }()

	s := NewEPOScraper(epoTestSettings(), server.Client())
	s.Log = io.Discard

	for i := 0; i < 2; i++ {
		if _, err := s.Search(context.Background(), Query{Text: "x", MaxResults: 5}); err != nil {
			t.Fatal(err)
		}
	}
	if tokenRequests != 1 {
		t.Errorf("token requests = %d, want 1 (cached)", tokenRequests)
	}
}

func TestEPOShortPageEndsPagination(t *testing.T) {
	searchRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			fmt.Fprint(w, `{"access_token": "tok", "expires_in": "1200"}`)
			return
		}
		searchRequests++
		// One document is a short page for any range wider than one.
		fmt.Fprint(w, sampleOPSXML)
	}))
	defer server.Close()

	oldAuth, oldSearch := epoAuthBase, epoSearchBase
	epoAuthBase = server.URL + "/auth"
	epoSearchBase = server.URL + "/search"
	defer func() { epoAuthBase, epoSearchBase = oldAuth, oldSearch }()

	s := NewEPOScraper(epoTestSettings(), server.Client())
	s.Log = io.Discard

	docs, err := s.Search(context.Background(), Query{Text: "x", MaxResults: 500})
	if err != nil {
		t.Fatal(err)
	}
	if searchRequests != 1 {
		t.Errorf("search requests = %d, want 1", searchRequests)
	}
	if len(docs) != 1 {
		t.Errorf("got %d documents, want 1", len(docs))
	}
}

func TestPickEnglishTitleFallback(t *testing.T) {
	titles := []epoTitle{
		{Lang: "de", Text: " Titel "},
		{Lang: "fr", Text: "Titre"},
	}
	if got := pickEnglishTitle(titles); got != "Titel" {
		t.Errorf("got %q, want first non-empty fallback", got)
	}
	if got := pickEnglishTitle(nil); got != "" {
		t.Errorf("got %q for no titles", got)
	}
}

func TestMapExchangeDocumentNoTitle(t *testing.T) {
	if doc := mapExchangeDocument(epoExchangeDocument{}); doc != nil {
		t.Errorf("expected nil for untitled document, got %+v", doc)
	}
}
