// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"encoding/json"
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

// EPO Open Patent Services endpoints. Declared as vars so tests can
// substitute an httptest server.
var (
	epoAuthBase   = "https://ops.epo.org/3.2/auth/accesstoken"
	epoSearchBase = "https://ops.epo.org/3.2/rest-services/published-data/search"
)

// epoPageSize is the OPS result-range width; ranges are 1-based inclusive.
const epoPageSize = 100

// epoCQLTemplate scopes the free-text query to IPC class A61K,
// "Preparations for medical, dental or toilet purposes".
const epoCQLTemplate = `ta = "%s" AND cl = "A61K"`

// OPS namespaces: the ops envelope and the exchange document format.
const (
	opsNS      = "http://ops.epo.org"
	exchangeNS = "http://www.epo.org/exchange"
)

// EPOScraper harvests European patents through the OPS bibliographic
// search. It only activates when both consumer credentials are present;
// without them Search is a no-op that returns an empty result, so a run
// across all sources never fails on missing EPO registration.
type EPOScraper struct {
	client  *http.Client
	cfg     types.Settings
	limiter *ratelimit.Limiter

	// Log receives progress and warning lines. Defaults to stderr.
	Log io.Writer

	token       string
	tokenExpiry time.Time
}

// NewEPOScraper builds the scraper. OPS publishes a fair-use policy
// rather than a hard quota; one request per second stays well inside it.
func NewEPOScraper(cfg types.Settings, client *http.Client) *EPOScraper {
	return &EPOScraper{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(1),
		Log:     os.Stderr,
	}
}

// Name returns the scraper identifier.
func (s *EPOScraper) Name() string { return "epo" }

// DefaultOutputPath returns the JSONL location derived from the name.
func (s *EPOScraper) DefaultOutputPath() string {
	return defaultOutputPath(s.cfg.OutputDir, s.Name())
}

// enabled reports whether the credential pair is configured.
func (s *EPOScraper) enabled() bool {
	return s.cfg.EPOKey != "" && s.cfg.EPOSecret != ""
}

// Search pages OPS result ranges (1-100, 101-200, ...) until the limit is
// reached, a page comes back empty or short, or a page-level failure
// truncates the run.
func (s *EPOScraper) Search(ctx context.Context, query Query) ([]types.Document, error) {
	if !s.enabled() {
		fmt.Fprintf(s.Log, "epo: skipped, set epo-key and epo-secret to enable\n")
		return nil, nil
	}

	fmt.Fprintf(s.Log, "epo: searching query=%q max_results=%d\n", query.Text, query.limit())

	cql := fmt.Sprintf(epoCQLTemplate, query.Text)
	if !query.DateFrom.IsZero() {
		cql += fmt.Sprintf(` AND pd >= "%s"`, query.DateFrom.Format(dateFmt))
	}
	if !query.DateTo.IsZero() {
		cql += fmt.Sprintf(` AND pd <= "%s"`, query.DateTo.Format(dateFmt))
	}

	limit := query.limit()
	var documents []types.Document
	rangeBegin := 1

	for len(documents) < limit {
		rangeEnd := rangeBegin + epoPageSize - 1
		if rangeEnd > limit {
			rangeEnd = limit
		}

		batch, err := s.fetchRange(ctx, cql, rangeBegin, rangeEnd)
		if err != nil {
			fmt.Fprintf(s.Log, "epo: range %d-%d failed, returning partial results: %v\n", rangeBegin, rangeEnd, err)
			break
		}
		if len(batch) == 0 {
			break
		}

		documents = append(documents, batch...)
		rangeBegin = rangeEnd + 1

		// A short page means the upstream ran out of results.
		if len(batch) < epoPageSize {
			break
		}
	}

	if len(documents) > limit {
		documents = documents[:limit]
	}
	fmt.Fprintf(s.Log, "epo: parsed %d documents\n", len(documents))
	return documents, nil
}

// accessToken returns a cached OAuth token or fetches a fresh one with the
// client-credentials grant.
func (s *EPOScraper) accessToken(ctx context.Context) (string, error) {
	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, epoAuthBase, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.EPOKey, s.cfg.EPOSecret)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.limiter.Wait)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	// OPS reports expires_in as a string of seconds.
	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ttl := 20 * time.Minute
	if secs, err := strconv.Atoi(tr.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	s.token = tr.AccessToken
	s.tokenExpiry = time.Now().Add(ttl - time.Minute)
	return s.token, nil
}

// fetchRange retrieves and parses one result range.
func (s *EPOScraper) fetchRange(ctx context.Context, cql string, begin, end int) ([]types.Document, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":     {cql},
		"Range": {fmt.Sprintf("%d-%d", begin, end)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, epoSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.limiter.Wait)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	return parseEPOSearchResponse(resp.Body)
}

// OPS XML structures. The envelope lives in the ops namespace, the
// documents themselves in the exchange namespace.
type opsWorldPatentData struct {
	XMLName      xml.Name        `xml:"http://ops.epo.org world-patent-data"`
	BiblioSearch opsBiblioSearch `xml:"http://ops.epo.org biblio-search"`
}

type opsBiblioSearch struct {
	TotalResultCount string          `xml:"total-result-count,attr"`
	SearchResult     opsSearchResult `xml:"http://ops.epo.org search-result"`
}

type opsSearchResult struct {
	ExchangeDocuments epoExchangeDocuments `xml:"http://www.epo.org/exchange exchange-documents"`
}

type epoExchangeDocuments struct {
	Documents []epoExchangeDocument `xml:"http://www.epo.org/exchange exchange-document"`
}

type epoExchangeDocument struct {
	Biblio    epoBiblio     `xml:"http://www.epo.org/exchange bibliographic-data"`
	Abstracts []epoAbstract `xml:"http://www.epo.org/exchange abstract"`
}

type epoBiblio struct {
	Titles          []epoTitle       `xml:"http://www.epo.org/exchange invention-title"`
	PublicationRefs []epoDocumentID  `xml:"http://www.epo.org/exchange publication-reference>document-id"`
	IPCRs           []epoIPCRText    `xml:"http://www.epo.org/exchange classifications-ipcr>classification-ipcr"`
	Applicants      []epoPartyName   `xml:"http://www.epo.org/exchange parties>applicants>applicant>applicant-name"`
}

type epoTitle struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type epoAbstract struct {
	Lang       string   `xml:"lang,attr"`
	Paragraphs []string `xml:"http://www.epo.org/exchange p"`
}

type epoDocumentID struct {
	Country   string `xml:"http://www.epo.org/exchange country"`
	DocNumber string `xml:"http://www.epo.org/exchange doc-number"`
	Kind      string `xml:"http://www.epo.org/exchange kind"`
	Date      string `xml:"http://www.epo.org/exchange date"`
}

type epoIPCRText struct {
	Text string `xml:"http://www.epo.org/exchange text"`
}

type epoPartyName struct {
	Name string `xml:"http://www.epo.org/exchange name"`
}

// parseEPOSearchResponse decodes one OPS XML payload into documents.
func parseEPOSearchResponse(r io.Reader) ([]types.Document, error) {
	var envelope opsWorldPatentData
	if err := xml.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("parsing OPS XML: %w", err)
	}

	var docs []types.Document
	for _, exchange := range envelope.BiblioSearch.SearchResult.ExchangeDocuments.Documents {
		if doc := mapExchangeDocument(exchange); doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// mapExchangeDocument converts one exchange-document element to a
// Document. English title and abstract are preferred, any language is the
// fallback, and a document without any title maps to nil.
func mapExchangeDocument(exchange epoExchangeDocument) *types.Document {
	title := pickEnglishTitle(exchange.Biblio.Titles)
	if title == "" {
		return nil
	}

	var identifiers []types.Identifier
	var pubDate time.Time
	if len(exchange.Biblio.PublicationRefs) > 0 {
		id := exchange.Biblio.PublicationRefs[0]
		if id.DocNumber != "" {
			number := id.Country + id.DocNumber + id.Kind
			identifiers = append(identifiers, types.Identifier{Type: "patent_number", Value: number})
		}
		if len(id.Date) == 8 {
			if t, err := time.Parse("20060102", id.Date); err == nil {
				pubDate = t
			}
		}
	}

	var authors []types.Author
	for _, applicant := range exchange.Biblio.Applicants {
		if name := strings.TrimSpace(applicant.Name); name != "" {
			authors = append(authors, types.Author{Name: name})
		}
	}

	var ipcCodes []string
	for _, ipcr := range exchange.Biblio.IPCRs {
		if text := strings.TrimSpace(ipcr.Text); text != "" {
			ipcCodes = append(ipcCodes, text)
		}
	}

	return &types.Document{
		Source:          types.SourceEPO,
		Title:           title,
		Abstract:        pickEnglishAbstract(exchange.Abstracts),
		Authors:         authors,
		PublicationDate: pubDate,
		Identifiers:     identifiers,
		JournalOrOffice: "EPO",
		Metadata: map[string]any{
			"ipc_codes": ipcCodes,
		},
		ScrapedAt: time.Now().UTC(),
	}
}

func pickEnglishTitle(titles []epoTitle) string {
	var fallback string
	for _, t := range titles {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		if t.Lang == "en" {
			return text
		}
		if fallback == "" {
			fallback = text
		}
	}
	return fallback
}

func pickEnglishAbstract(abstracts []epoAbstract) string {
	var fallback string
	for _, a := range abstracts {
		if len(a.Paragraphs) == 0 {
			continue
		}
		text := strings.TrimSpace(a.Paragraphs[0])
		if text == "" {
			continue
		}
		if a.Lang == "en" {
			return text
		}
		if fallback == "" {
			fallback = text
		}
	}
	return fallback
}
