// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/chem-harvest/internal/httputil"
	"github.com/pdiddy/chem-harvest/internal/ratelimit"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

// patentsViewBase is the PatentsView patent search endpoint. Declared as a
// var so tests can substitute an httptest server.
var patentsViewBase = "https://search.patentsview.org/api/v1/patent/"

// patentsViewPageSize is the maximum page size the API accepts.
const patentsViewPageSize = 100

// patentsViewFields is the fixed projection requested from the API.
var patentsViewFields = []string{
	"patent_id",
	"patent_title",
	"patent_abstract",
	"patent_date",
	"inventors.inventor_name_last",
	"inventors.inventor_name_first",
	"assignees.assignee_organization",
	"cpc_current.cpc_group_id",
}

// USPTOScraper harvests US patents through the PatentsView search API:
// cursor-paginated POST queries carrying a JSON filter tree.
type USPTOScraper struct {
	client  *http.Client
	cfg     types.Settings
	limiter *ratelimit.Limiter

	// Log receives progress and warning lines. Defaults to stderr.
	Log io.Writer
}

// NewUSPTOScraper builds the scraper with a limiter matched to the
// published PatentsView quota of 45 requests/minute.
func NewUSPTOScraper(cfg types.Settings, client *http.Client) *USPTOScraper {
	return &USPTOScraper{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(0.75),
		Log:     os.Stderr,
	}
}

// Name returns the scraper identifier.
func (s *USPTOScraper) Name() string { return "uspto" }

// DefaultOutputPath returns the JSONL location derived from the name.
func (s *USPTOScraper) DefaultOutputPath() string {
	return defaultOutputPath(s.cfg.OutputDir, s.Name())
}

// PatentsView API JSON structures.
type patentsViewResponse struct {
	Patents []patentsViewPatent `json:"patents"`
	Count   int                 `json:"count"`
	Total   int                 `json:"total_hits"`
	Cursor  string              `json:"cursor"`
}

type patentsViewPatent struct {
	PatentID       string                 `json:"patent_id"`
	PatentTitle    string                 `json:"patent_title"`
	PatentAbstract string                 `json:"patent_abstract"`
	PatentDate     string                 `json:"patent_date"`
	Inventors      []patentsViewInventor  `json:"inventors"`
	Assignees      []patentsViewAssignee  `json:"assignees"`
	CPCCurrent     []patentsViewCPCRecord `json:"cpc_current"`
}

type patentsViewInventor struct {
	NameFirst string `json:"inventor_name_first"`
	NameLast  string `json:"inventor_name_last"`
}

type patentsViewAssignee struct {
	Organization string `json:"assignee_organization"`
}

type patentsViewCPCRecord struct {
	GroupID string `json:"cpc_group_id"`
}

// Search pages through PatentsView results with the `after` cursor until
// the limit is reached, a page comes back empty, or the response carries
// no next cursor.
func (s *USPTOScraper) Search(ctx context.Context, query Query) ([]types.Document, error) {
	fmt.Fprintf(s.Log, "uspto: searching query=%q max_results=%d\n", query.Text, query.limit())

	limit := query.limit()
	var documents []types.Document
	cursor := ""

	for len(documents) < limit {
		size := patentsViewPageSize
		if remaining := limit - len(documents); remaining < size {
			size = remaining
		}

		page, err := s.fetchPage(ctx, query, size, cursor)
		if err != nil {
			fmt.Fprintf(s.Log, "uspto: page failed, returning partial results: %v\n", err)
			break
		}

		if len(page.Patents) == 0 {
			break
		}

		for _, patent := range page.Patents {
			if doc := mapPatentsViewPatent(patent); doc != nil {
				documents = append(documents, *doc)
				if len(documents) >= limit {
					break
				}
			}
		}

		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	fmt.Fprintf(s.Log, "uspto: parsed %d documents\n", len(documents))
	return documents, nil
}

// buildPatentsViewBody assembles the query document: a full-text phrase
// filter over title or abstract, optionally intersected with a
// patent_date range, the fixed projection, and pagination options.
func buildPatentsViewBody(query Query, size int, cursor string) map[string]any {
	var filter map[string]any = map[string]any{
		"_or": []any{
			map[string]any{"_text_phrase": map[string]any{"patent_abstract": query.Text}},
			map[string]any{"_text_phrase": map[string]any{"patent_title": query.Text}},
		},
	}

	var dateConds []any
	if !query.DateFrom.IsZero() {
		dateConds = append(dateConds, map[string]any{"_gte": map[string]any{"patent_date": query.DateFrom.Format(dateFmt)}})
	}
	if !query.DateTo.IsZero() {
		dateConds = append(dateConds, map[string]any{"_lte": map[string]any{"patent_date": query.DateTo.Format(dateFmt)}})
	}
	if len(dateConds) > 0 {
		filter = map[string]any{"_and": append([]any{filter}, dateConds...)}
	}

	options := map[string]any{"size": size}
	if cursor != "" {
		options["after"] = cursor
	}

	return map[string]any{
		"q": filter,
		"f": patentsViewFields,
		"o": options,
	}
}

// fetchPage issues one cursor-paginated POST query.
func (s *USPTOScraper) fetchPage(ctx context.Context, query Query, size int, cursor string) (patentsViewResponse, error) {
	body, err := json.Marshal(buildPatentsViewBody(query, size, cursor))
	if err != nil {
		return patentsViewResponse{}, fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, patentsViewBase, bytes.NewReader(body))
	if err != nil {
		return patentsViewResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	if s.cfg.USPTOAPIKey != "" {
		req.Header.Set("X-Api-Key", s.cfg.USPTOAPIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.limiter.Wait)
	if err != nil {
		return patentsViewResponse{}, fmt.Errorf("PatentsView request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return patentsViewResponse{}, fmt.Errorf("PatentsView returned HTTP %d", resp.StatusCode)
	}

	var page patentsViewResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return patentsViewResponse{}, fmt.Errorf("parsing PatentsView response: %w", err)
	}
	return page, nil
}

// mapPatentsViewPatent converts one patent record to a Document. A record
// without a title maps to nil.
func mapPatentsViewPatent(patent patentsViewPatent) *types.Document {
	if patent.PatentTitle == "" {
		return nil
	}

	var identifiers []types.Identifier
	if patent.PatentID != "" {
		identifiers = append(identifiers, types.Identifier{Type: "patent_number", Value: patent.PatentID})
	}

	var authors []types.Author
	for _, inv := range patent.Inventors {
		name := strings.TrimSpace(inv.NameFirst + " " + inv.NameLast)
		if name != "" {
			authors = append(authors, types.Author{Name: name})
		}
	}

	var pubDate time.Time
	if patent.PatentDate != "" {
		if t, err := time.Parse(dateFmt, patent.PatentDate); err == nil {
			pubDate = t
		}
	}

	cpcCodes := make([]string, 0, len(patent.CPCCurrent))
	for _, cpc := range patent.CPCCurrent {
		if cpc.GroupID != "" {
			cpcCodes = append(cpcCodes, cpc.GroupID)
		}
	}

	assignees := make([]string, 0, len(patent.Assignees))
	for _, a := range patent.Assignees {
		if a.Organization != "" {
			assignees = append(assignees, a.Organization)
		}
	}

	var fullTextURL string
	if patent.PatentID != "" {
		fullTextURL = "https://patents.google.com/patent/US" + patent.PatentID
	}

	return &types.Document{
		Source:          types.SourceUSPTO,
		Title:           patent.PatentTitle,
		Abstract:        patent.PatentAbstract,
		Authors:         authors,
		PublicationDate: pubDate,
		Identifiers:     identifiers,
		FullTextURL:     fullTextURL,
		JournalOrOffice: "USPTO",
		Metadata: map[string]any{
			"cpc_codes": cpcCodes,
			"assignees": assignees,
		},
		ScrapedAt: time.Now().UTC(),
	}
}
