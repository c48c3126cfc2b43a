// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/chem-harvest/internal/httputil"
	"github.com/pdiddy/chem-harvest/internal/ratelimit"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	pubmedESearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedEFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// pubmedBatchSize is the efetch page size. NCBI recommends at most 500
// records per history-backed fetch.
const pubmedBatchSize = 500

const pubmedToolName = "chem-harvest"

// PubMedScraper harvests literature records from NCBI PubMed via the
// E-utilities two-phase protocol: esearch with usehistory=y obtains a
// result count and a continuation handle (WebEnv + QueryKey), then efetch
// pages MEDLINE-format records through that handle.
type PubMedScraper struct {
	client  *http.Client
	cfg     types.Settings
	limiter *ratelimit.Limiter

	// Log receives progress and warning lines. Defaults to stderr.
	Log io.Writer
}

// NewPubMedScraper builds the scraper with a rate limiter matched to the
// NCBI quota: 10 req/s with an API key, 3 without.
func NewPubMedScraper(cfg types.Settings, client *http.Client) *PubMedScraper {
	return &PubMedScraper{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.NCBIRateLimit()),
		Log:     os.Stderr,
	}
}

// Name returns the scraper identifier.
func (s *PubMedScraper) Name() string { return "pubmed" }

// DefaultOutputPath returns the JSONL location derived from the name.
func (s *PubMedScraper) DefaultOutputPath() string {
	return defaultOutputPath(s.cfg.OutputDir, s.Name())
}

// eSearchResult is the esearch XML envelope; only the count and history
// keys are consumed.
type eSearchResult struct {
	Count    int    `xml:"Count"`
	WebEnv   string `xml:"WebEnv"`
	QueryKey string `xml:"QueryKey"`
}

// Search runs the history-backed search and fetches up to
// min(total count, query.MaxResults) records in batches.
func (s *PubMedScraper) Search(ctx context.Context, query Query) ([]types.Document, error) {
	fmt.Fprintf(s.Log, "pubmed: searching query=%q max_results=%d\n", query.Text, query.limit())

	result, err := s.esearch(ctx, query)
	if err != nil {
		return nil, err
	}

	fetchCount := result.Count
	if limit := query.limit(); fetchCount > limit {
		fetchCount = limit
	}
	fmt.Fprintf(s.Log, "pubmed: %d results, fetching %d\n", result.Count, fetchCount)

	var documents []types.Document
	for start := 0; start < fetchCount; start += pubmedBatchSize {
		batch := pubmedBatchSize
		if remaining := fetchCount - start; remaining < batch {
			batch = remaining
		}

		records, err := s.efetch(ctx, result, start, batch)
		if err != nil {
			// A failed batch ends pagination; what we have is the result.
			fmt.Fprintf(s.Log, "pubmed: batch at offset %d failed, returning partial results: %v\n", start, err)
			break
		}

		for _, record := range records {
			if doc := mapMedlineRecord(record); doc != nil {
				documents = append(documents, *doc)
			}
		}
	}

	if limit := query.limit(); len(documents) > limit {
		documents = documents[:limit]
	}
	fmt.Fprintf(s.Log, "pubmed: parsed %d documents\n", len(documents))
	return documents, nil
}

// esearch issues the initial count-and-handle query.
func (s *PubMedScraper) esearch(ctx context.Context, query Query) (eSearchResult, error) {
	params := url.Values{
		"db":         {"pubmed"},
		"term":       {query.Text},
		"retmax":     {"0"},
		"usehistory": {"y"},
		"tool":       {pubmedToolName},
	}
	if s.cfg.NCBIEmail != "" {
		params.Set("email", s.cfg.NCBIEmail)
	}
	if s.cfg.NCBIAPIKey != "" {
		params.Set("api_key", s.cfg.NCBIAPIKey)
	}
	if !query.DateFrom.IsZero() {
		params.Set("mindate", query.DateFrom.Format(dateFmt))
		params.Set("datetype", "pdat")
	}
	if !query.DateTo.IsZero() {
		params.Set("maxdate", query.DateTo.Format(dateFmt))
		params.Set("datetype", "pdat")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedESearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return eSearchResult{}, fmt.Errorf("creating esearch request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.limiter.Wait)
	if err != nil {
		return eSearchResult{}, fmt.Errorf("esearch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eSearchResult{}, fmt.Errorf("esearch returned HTTP %d", resp.StatusCode)
	}

	var result eSearchResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return eSearchResult{}, fmt.Errorf("parsing esearch response: %w", err)
	}
	if result.WebEnv == "" || result.QueryKey == "" {
		return eSearchResult{}, fmt.Errorf("esearch response missing history keys")
	}
	return result, nil
}

// efetch retrieves one MEDLINE batch through the history handle.
func (s *PubMedScraper) efetch(ctx context.Context, search eSearchResult, start, count int) ([]medlineRecord, error) {
	params := url.Values{
		"db":        {"pubmed"},
		"rettype":   {"medline"},
		"retmode":   {"text"},
		"retstart":  {strconv.Itoa(start)},
		"retmax":    {strconv.Itoa(count)},
		"WebEnv":    {search.WebEnv},
		"query_key": {search.QueryKey},
		"tool":      {pubmedToolName},
	}
	if s.cfg.NCBIEmail != "" {
		params.Set("email", s.cfg.NCBIEmail)
	}
	if s.cfg.NCBIAPIKey != "" {
		params.Set("api_key", s.cfg.NCBIAPIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedEFetchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating efetch request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.limiter.Wait)
	if err != nil {
		return nil, fmt.Errorf("efetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("efetch returned HTTP %d", resp.StatusCode)
	}

	return parseMedline(resp.Body), nil
}

// chemicalIndicators marks MeSH subheadings whose presence suggests the
// heading names a chemical substance.
var chemicalIndicators = []string{
	"/pharmacology",
	"/chemistry",
	"/metabolism",
	"/chemical synthesis",
	"/therapeutic use",
	"/toxicity",
}

// isChemicalMeSH reports whether a MeSH heading carries a pharmacological
// subheading, ignoring the leading major-topic marker.
func isChemicalMeSH(heading string) bool {
	h := strings.ToLower(strings.ReplaceAll(heading, "*", ""))
	for _, indicator := range chemicalIndicators {
		if strings.Contains(h, indicator) {
			return true
		}
	}
	return false
}

// mapMedlineRecord converts one MEDLINE record to a Document. A record
// without a title maps to nil and is dropped.
func mapMedlineRecord(record medlineRecord) *types.Document {
	title := record.first("TI")
	if title == "" {
		return nil
	}

	var identifiers []types.Identifier
	pmid := record.first("PMID")
	if pmid != "" {
		identifiers = append(identifiers, types.Identifier{Type: "pmid", Value: pmid})
	}
	// The DOI hides in the article-identifier list, tagged "[doi]".
	for _, aid := range record["AID"] {
		if strings.HasSuffix(aid, "[doi]") {
			value := strings.TrimSpace(strings.TrimSuffix(aid, "[doi]"))
			identifiers = append(identifiers, types.Identifier{Type: "doi", Value: value})
		}
	}

	var authors []types.Author
	for _, name := range record["AU"] {
		authors = append(authors, types.Author{Name: name})
	}

	meshHeadings := record["MH"]
	var chemicals []string
	for _, mh := range meshHeadings {
		if isChemicalMeSH(mh) {
			chemicals = append(chemicals, strings.SplitN(strings.Trim(mh, "*"), "/", 2)[0])
		}
	}

	var fullTextURL string
	if pmid != "" {
		fullTextURL = fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid)
	}

	return &types.Document{
		Source:           types.SourcePubMed,
		Title:            title,
		Abstract:         record.first("AB"),
		Authors:          authors,
		PublicationDate:  parseMedlineDate(record.first("DP")),
		Identifiers:      identifiers,
		ChemicalEntities: chemicals,
		Keywords:         record["OT"],
		JournalOrOffice:  record.first("JT"),
		FullTextURL:      fullTextURL,
		Metadata: map[string]any{
			"mesh_headings":     meshHeadings,
			"publication_types": record["PT"],
			"languages":         record["LA"],
		},
		ScrapedAt: time.Now().UTC(),
	}
}

// medlineMonths maps the fixed MEDLINE three-letter month abbreviations.
var medlineMonths = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// parseMedlineDate parses MEDLINE publication dates of the form
// "2024 Mar 15", "2024 Mar", or "2024". Missing month and day default
// to 1; an unparsable year (or day) yields the zero time.
func parseMedlineDate(s string) time.Time {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return time.Time{}
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}
	}

	month := time.January
	if len(parts) > 1 {
		if m, ok := medlineMonths[parts[1]]; ok {
			month = m
		}
	}

	day := 1
	if len(parts) > 2 {
		day, err = strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}
		}
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
