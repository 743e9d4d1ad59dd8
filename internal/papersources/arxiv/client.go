// Package arxiv implements the arXiv Atom query API connector.
package arxiv

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit follows arXiv's request for one call every three seconds.
	DefaultRateLimit = 0.33

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 50

	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the entry URL, dropping the version suffix.
// Matches "http://arxiv.org/abs/2301.12345v1" and "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv connector.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	MaxResults int
	MaxRetries int
	Enabled    bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements papersources.Connector for arXiv.
type Client struct {
	config     Config
	httpClient *httpclient.Client
}

var _ papersources.Connector = (*Client)(nil)

// New creates an arXiv connector.
func New(cfg Config, opts ...httpclient.Option) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:       string(domain.SourceArXiv),
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
		}, opts...),
	}
}

// NewWithHTTPClient creates an arXiv connector using httpClient, e.g. one pointed at a test server.
func NewWithHTTPClient(cfg Config, httpClient *httpclient.Client) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries arXiv. DOI queries use the doi: field, keyword queries all:.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]domain.OARecord, error) {
	if q.IsEmpty() {
		return []domain.OARecord{}, nil
	}

	var feed Feed
	if err := c.httpClient.GetXML(ctx, "query", c.buildSearchURL(q), &feed); err != nil {
		return nil, err
	}

	records := c.entriesToRecords(feed.Entries)
	if doi := q.NormalizedDOI(); doi != "" {
		records = papersources.FilterByDOI(records, doi)
	}
	return records, nil
}

// Fetch retrieves a paper by its arXiv identifier.
func (c *Client) Fetch(ctx context.Context, sourceID string) (*domain.OARecord, error) {
	params := url.Values{}
	params.Set("id_list", sourceID)

	var feed Feed
	if err := c.httpClient.GetXML(ctx, "query", c.endpoint()+"?"+params.Encode(), &feed); err != nil {
		if httpclient.IsStatus(err, 400) || httpclient.IsStatus(err, 404) {
			return nil, domain.NewNotFoundError("record", domain.RecordID(domain.SourceArXiv, sourceID))
		}
		return nil, err
	}

	records := c.entriesToRecords(feed.Entries)
	if len(records) == 0 {
		return nil, domain.NewNotFoundError("record", domain.RecordID(domain.SourceArXiv, sourceID))
	}
	return &records[0], nil
}

// Source returns domain.SourceArXiv.
func (c *Client) Source() domain.Source {
	return domain.SourceArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/query"
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(q papersources.Query) string {
	params := url.Values{}
	params.Set("search_query", buildSearchQuery(q))
	params.Set("max_results", strconv.Itoa(q.LimitOr(c.config.MaxResults)))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")
	return c.endpoint() + "?" + params.Encode()
}

func buildSearchQuery(q papersources.Query) string {
	var sq string
	if doi := q.NormalizedDOI(); doi != "" {
		sq = fmt.Sprintf("doi:%q", doi)
	} else {
		sq = "all:" + q.Keywords()
	}
	if q.HasYearRange() {
		sq += " AND " + buildDateFilter(q.YearFrom, q.YearTo)
	}
	return sq
}

// buildDateFilter renders a submittedDate range covering whole years, * for open ends.
func buildDateFilter(from, to *int) string {
	fromStr, toStr := "*", "*"
	if from != nil {
		fromStr = fmt.Sprintf("%04d01010000", *from)
	}
	if to != nil {
		toStr = fmt.Sprintf("%04d12312359", *to)
	}
	return fmt.Sprintf("submittedDate:[%s TO %s]", fromStr, toStr)
}

func (c *Client) entriesToRecords(entries []Entry) []domain.OARecord {
	records := make([]domain.OARecord, 0, len(entries))
	for i := range entries {
		if rec, ok := entryToRecord(&entries[i]); ok {
			records = append(records, rec)
		}
	}
	return papersources.Finalize(records)
}

// entryToRecord maps an Atom entry. Entries without a parseable id or
// publication date are skipped.
func entryToRecord(entry *Entry) (domain.OARecord, bool) {
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return domain.OARecord{}, false
	}
	published, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published))
	if err != nil {
		return domain.OARecord{}, false
	}

	rec := domain.NewRecord(domain.SourceArXiv, arxivID, entry.Title, published)
	rec.Abstract = entry.Summary
	rec.Year = domain.IntPtr(published.Year())
	rec.DOI = entry.DOI
	rec.Venue = entry.JournalRef
	rec.Publisher = sourceName
	rec.OAStatus = domain.OAStatusPreprint

	for _, a := range entry.Authors {
		rec.Authors = append(rec.Authors, a.Name)
	}
	if entry.PrimaryCategory.Term != "" {
		rec.Topics = append(rec.Topics, entry.PrimaryCategory.Term)
	}
	for _, cat := range entry.Categories {
		rec.Topics = append(rec.Topics, cat.Term)
	}

	for _, link := range entry.Links {
		switch {
		case rec.BestPDFURL == "" && (link.Title == "pdf" || link.Type == "application/pdf"):
			rec.BestPDFURL = link.Href
		case rec.LandingPage == "" && link.Rel == "alternate":
			rec.LandingPage = link.Href
		}
	}
	if rec.BestPDFURL == "" {
		rec.BestPDFURL = "https://arxiv.org/pdf/" + arxivID
	}
	if rec.LandingPage == "" {
		rec.LandingPage = "https://arxiv.org/abs/" + arxivID
	}

	if updated, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Updated)); err == nil {
		u := updated.UTC()
		rec.UpdatedAt = &u
	}
	return rec, true
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" → "2301.12345"
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(strings.TrimSpace(entryURL))
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
