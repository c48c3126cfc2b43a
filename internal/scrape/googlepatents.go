// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/chem-harvest/internal/httputil"
	"github.com/pdiddy/chem-harvest/internal/ratelimit"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

// Endpoints for the two Google Patents strategies. Declared as vars so
// tests can substitute an httptest server.
var (
	serpAPIBase       = "https://serpapi.com/search.json"
	googlePatentsBase = "https://patents.google.com/"
)

const serpAPIEngine = "google_patents"

// googlePatentsUserAgent is sent on the HTML path so the public search
// page answers as it would for a browser.
const googlePatentsUserAgent = "Mozilla/5.0 (compatible; ChemHarvest/0.1; research)"

// GooglePatentsScraper harvests patents from Google Patents. With a
// SerpAPI key it pages the structured search API; without one it falls
// back to scraping the public search page, which is best-effort and
// breaks whenever Google changes the markup.
type GooglePatentsScraper struct {
	client  *http.Client
	cfg     types.Settings
	limiter *ratelimit.Limiter

	// Log receives progress and warning lines. Defaults to stderr.
	Log io.Writer
}

// NewGooglePatentsScraper builds the scraper with a conservative
// 1 request/second limiter; Google publishes no quota for either path.
func NewGooglePatentsScraper(cfg types.Settings, client *http.Client) *GooglePatentsScraper {
	return &GooglePatentsScraper{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(1),
		Log:     os.Stderr,
	}
}

// Name returns the scraper identifier.
func (s *GooglePatentsScraper) Name() string { return "google_patents" }

// DefaultOutputPath returns the JSONL location derived from the name.
func (s *GooglePatentsScraper) DefaultOutputPath() string {
	return defaultOutputPath(s.cfg.OutputDir, s.Name())
}

// Search selects the strategy by credential presence: the structured API
// when a SerpAPI key is configured, HTML scraping otherwise.
func (s *GooglePatentsScraper) Search(ctx context.Context, query Query) ([]types.Document, error) {
	if s.cfg.SerpAPIKey != "" {
		return s.searchSerpAPI(ctx, query)
	}
	return s.searchHTML(ctx, query)
}

// --- Structured-API strategy ---

type serpAPIResponse struct {
	OrganicResults []serpAPIResult `json:"organic_results"`
}

type serpAPIResult struct {
	Title        string `json:"title"`
	PatentID     string `json:"patent_id"`
	Snippet      string `json:"snippet"`
	Inventor     string `json:"inventor"`
	Assignee     string `json:"assignee"`
	PriorityDate string `json:"priority_date"`
	FilingDate   string `json:"filing_date"`
	GrantDate    string `json:"grant_date"`
	PDF          string `json:"pdf"`
	Link         string `json:"link"`
	Thumbnail    string `json:"thumbnail"`
}

func (s *GooglePatentsScraper) searchSerpAPI(ctx context.Context, query Query) ([]types.Document, error) {
	fmt.Fprintf(s.Log, "google_patents: searching via SerpAPI query=%q\n", query.Text)

	limit := query.limit()
	var documents []types.Document

	for page := 0; len(documents) < limit; page++ {
		params := url.Values{
			"engine":  {serpAPIEngine},
			"q":       {query.Text},
			"api_key": {s.cfg.SerpAPIKey},
			"page":    {fmt.Sprintf("%d", page)},
		}
		if !query.DateFrom.IsZero() {
			// TODO: "before" is sent (possibly empty) whenever "after" is
			// set, and never on its own; confirm the intended pairing with
			// the SerpAPI date filters before changing it.
			before := ""
			if !query.DateTo.IsZero() {
				before = query.DateTo.Format(dateFmt)
			}
			params.Set("before", before)
			params.Set("after", query.DateFrom.Format(dateFmt))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBase+"?"+params.Encode(), nil)
		if err != nil {
			return documents, fmt.Errorf("creating SerpAPI request: %w", err)
		}
		req.Header.Set("User-Agent", s.cfg.UserAgent)

		resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.limiter.Wait)
		if err != nil {
			fmt.Fprintf(s.Log, "google_patents: page %d failed, returning partial results: %v\n", page, err)
			break
		}

		var sr serpAPIResponse
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			fmt.Fprintf(s.Log, "google_patents: SerpAPI returned HTTP %d, stopping\n", resp.StatusCode)
			break
		}
		err = json.NewDecoder(resp.Body).Decode(&sr)
		resp.Body.Close()
		if err != nil {
			fmt.Fprintf(s.Log, "google_patents: parsing SerpAPI page %d failed, stopping: %v\n", page, err)
			break
		}

		if len(sr.OrganicResults) == 0 {
			break
		}

		for _, result := range sr.OrganicResults {
			if doc := mapSerpAPIResult(result); doc != nil {
				documents = append(documents, *doc)
				if len(documents) >= limit {
					break
				}
			}
		}
	}

	fmt.Fprintf(s.Log, "google_patents: parsed %d documents (SerpAPI)\n", len(documents))
	return documents, nil
}

// mapSerpAPIResult converts one structured result item to a Document.
// An item without a title maps to nil.
func mapSerpAPIResult(result serpAPIResult) *types.Document {
	if result.Title == "" {
		return nil
	}

	var identifiers []types.Identifier
	if result.PatentID != "" {
		identifiers = append(identifiers, types.Identifier{Type: "patent_number", Value: result.PatentID})
	}

	var authors []types.Author
	if result.Inventor != "" {
		authors = append(authors, types.Author{Name: result.Inventor})
	}

	var pubDate time.Time
	dateStr := result.PriorityDate
	if dateStr == "" {
		dateStr = result.FilingDate
	}
	if dateStr != "" {
		if t, err := time.Parse(dateFmt, dateStr); err == nil {
			pubDate = t
		}
	}

	fullTextURL := result.PDF
	if fullTextURL == "" {
		fullTextURL = result.Link
	}

	return &types.Document{
		Source:          types.SourceGooglePatents,
		Title:           result.Title,
		Abstract:        result.Snippet,
		Authors:         authors,
		PublicationDate: pubDate,
		Identifiers:     identifiers,
		FullTextURL:     fullTextURL,
		JournalOrOffice: result.Assignee,
		Metadata: map[string]any{
			"grant_date": result.GrantDate,
			"thumbnail":  result.Thumbnail,
		},
		ScrapedAt: time.Now().UTC(),
	}
}

// --- HTML-fallback strategy ---

// resultSelectors is the cascade of candidate lookups for result blocks,
// tried in order until one matches. Zero matches on every tier is an
// expected outcome, not an error: it means the markup changed or the
// results ran out.
var resultSelectors = []string{
	"search-result-item, article.result",
	"[data-result]",
}

func (s *GooglePatentsScraper) searchHTML(ctx context.Context, query Query) ([]types.Document, error) {
	fmt.Fprintf(s.Log, "google_patents: searching via HTML fallback query=%q\n", query.Text)
	fmt.Fprintf(s.Log, "google_patents: warning: HTML scraping is fragile and may break when Google changes their markup\n")

	limit := query.limit()
	var documents []types.Document

	for page := 0; len(documents) < limit; page++ {
		body, err := s.fetchSearchPage(ctx, query, page)
		if err != nil {
			fmt.Fprintf(s.Log, "google_patents: page %d failed, returning partial results: %v\n", page, err)
			break
		}
		if body == nil {
			break
		}

		doc, err := goquery.NewDocumentFromReader(body)
		body.Close()
		if err != nil {
			fmt.Fprintf(s.Log, "google_patents: parsing page %d failed, stopping: %v\n", page, err)
			break
		}

		var results *goquery.Selection
		for _, selector := range resultSelectors {
			results = doc.Find(selector)
			if results.Length() > 0 {
				break
			}
		}
		if results == nil || results.Length() == 0 {
			fmt.Fprintf(s.Log, "google_patents: no results on page %d, markup may have changed\n", page)
			break
		}

		results.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if d := mapHTMLResult(el); d != nil {
				documents = append(documents, *d)
			}
			return len(documents) < limit
		})
	}

	fmt.Fprintf(s.Log, "google_patents: parsed %d documents (HTML)\n", len(documents))
	return documents, nil
}

// fetchSearchPage retrieves one public search page. A nil body with nil
// error means the upstream answered with a non-200 status.
func (s *GooglePatentsScraper) fetchSearchPage(ctx context.Context, query Query, page int) (io.ReadCloser, error) {
	params := url.Values{
		"q":    {query.Text},
		"page": {fmt.Sprintf("%d", page)},
	}
	if !query.DateFrom.IsZero() {
		params.Set("after", "priority:"+query.DateFrom.Format(dateFmt))
	}
	if !query.DateTo.IsZero() {
		params.Set("before", "priority:"+query.DateTo.Format(dateFmt))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googlePatentsBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search page request: %w", err)
	}
	req.Header.Set("User-Agent", googlePatentsUserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 3, s.limiter.Wait)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		fmt.Fprintf(s.Log, "google_patents: search page returned HTTP %d\n", resp.StatusCode)
		return nil, nil
	}
	return resp.Body, nil
}

// mapHTMLResult extracts a document from one result block. Best-effort:
// whatever the selectors find is kept, the rest stays empty.
func mapHTMLResult(el *goquery.Selection) *types.Document {
	title := strings.TrimSpace(el.Find("h3, .result-title, [data-title]").First().Text())
	if title == "" {
		text := []rune(strings.TrimSpace(el.Text()))
		if len(text) > 200 {
			text = text[:200]
		}
		title = string(text)
	}
	if title == "" {
		return nil
	}

	var (
		patentID    string
		fullTextURL string
	)
	if link := el.Find("a[href*='/patent/']").First(); link.Length() > 0 {
		href, _ := link.Attr("href")
		if _, rest, found := strings.Cut(href, "/patent/"); found {
			patentID, _, _ = strings.Cut(rest, "/")
		}
		if strings.HasPrefix(href, "/") {
			fullTextURL = "https://patents.google.com" + href
		} else {
			fullTextURL = href
		}
	}

	var identifiers []types.Identifier
	if patentID != "" {
		identifiers = append(identifiers, types.Identifier{Type: "patent_number", Value: patentID})
	}

	abstract := strings.TrimSpace(el.Find(".result-snippet, .abstract, p").First().Text())

	return &types.Document{
		Source:          types.SourceGooglePatents,
		Title:           title,
		Abstract:        abstract,
		Identifiers:     identifiers,
		FullTextURL:     fullTextURL,
		JournalOrOffice: "Google Patents",
		ScrapedAt:       time.Now().UTC(),
	}
}
