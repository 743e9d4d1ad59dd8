package doaj

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

const (
	// DefaultBaseURL is the DOAJ API base URL.
	DefaultBaseURL = "https://doaj.org/api"

	// DefaultRateLimit stays under DOAJ's published 2 req/s limit.
	DefaultRateLimit = 2.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is the default pageSize.
	DefaultMaxResults = 50

	// MaxPageSize is the largest pageSize DOAJ accepts.
	MaxPageSize = 100

	sourceName = "DOAJ"
)

// Config holds configuration for the DOAJ connector.
type Config struct {
	BaseURL string
	// APIKey is optional for searches.
	APIKey     string
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
	if c.MaxResults > MaxPageSize {
		c.MaxResults = MaxPageSize
	}
}

// Client implements papersources.Connector for DOAJ.
type Client struct {
	config     Config
	httpClient *httpclient.Client
}

var _ papersources.Connector = (*Client)(nil)

// New creates a DOAJ connector.
func New(cfg Config, opts ...httpclient.Option) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:       string(domain.SourceDOAJ),
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
		}, opts...),
	}
}

// NewWithHTTPClient creates a DOAJ connector using httpClient.
func NewWithHTTPClient(cfg Config, httpClient *httpclient.Client) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries /search/articles with the query embedded in the path.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]domain.OARecord, error) {
	if q.IsEmpty() {
		return []domain.OARecord{}, nil
	}

	params := url.Values{}
	params.Set("page", "1")
	params.Set("pageSize", strconv.Itoa(q.LimitOr(c.config.MaxResults)))
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}
	endpoint := c.baseURL() + "/search/articles/" + url.PathEscape(BuildQuery(q)) + "?" + params.Encode()

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, "search", endpoint, &resp); err != nil {
		return nil, err
	}

	records := make([]domain.OARecord, 0, len(resp.Results))
	for _, a := range resp.Results {
		if rec, ok := articleToRecord(a); ok {
			records = append(records, rec)
		}
	}
	records = papersources.Finalize(records)
	if doi := q.NormalizedDOI(); doi != "" {
		records = papersources.FilterByDOI(records, doi)
	}
	return records, nil
}

// Fetch retrieves an article by its DOAJ id.
func (c *Client) Fetch(ctx context.Context, sourceID string) (*domain.OARecord, error) {
	var article Article
	endpoint := c.baseURL() + "/articles/" + url.PathEscape(sourceID)
	if err := c.httpClient.GetJSON(ctx, "article", endpoint, &article); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, domain.NewNotFoundError("record", domain.RecordID(domain.SourceDOAJ, sourceID))
		}
		return nil, err
	}

	records := []domain.OARecord{}
	if rec, ok := articleToRecord(article); ok {
		records = papersources.Finalize([]domain.OARecord{rec})
	}
	if len(records) == 0 {
		return nil, domain.NewNotFoundError("record", domain.RecordID(domain.SourceDOAJ, sourceID))
	}
	return &records[0], nil
}

// Source returns domain.SourceDOAJ.
func (c *Client) Source() domain.Source {
	return domain.SourceDOAJ
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.config.BaseURL, "/")
}

// BuildQuery renders the DOAJ (Elasticsearch query string) query for q.
func BuildQuery(q papersources.Query) string {
	var query string
	if doi := q.NormalizedDOI(); doi != "" {
		query = fmt.Sprintf("doi:%q", doi)
	} else {
		query = q.Keywords()
	}
	if q.HasYearRange() {
		from, to := q.YearBounds("*")
		query = fmt.Sprintf("(%s) AND bibjson.year:[%s TO %s]", query, from, to)
	}
	return query
}

// articleToRecord maps a DOAJ article. Every DOAJ article is published open access.
func articleToRecord(a Article) (domain.OARecord, bool) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return domain.OARecord{}, false
	}
	bib := a.BibJSON

	year, yearErr := strconv.Atoi(strings.TrimSpace(bib.Year))
	created, err := time.Parse(time.RFC3339, strings.TrimSpace(a.CreatedDate))
	switch {
	case yearErr == nil && year > 0:
		month, _ := strconv.Atoi(strings.TrimSpace(bib.Month))
		if month < 1 || month > 12 {
			month = 1
		}
		created = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	case err != nil:
		return domain.OARecord{}, false
	}

	rec := domain.NewRecord(domain.SourceDOAJ, id, papersources.StripTags(bib.Title), created)
	rec.Year = domain.IntPtr(created.Year())
	rec.Abstract = papersources.StripTags(bib.Abstract)
	rec.Venue = bib.Journal.Title
	rec.Publisher = bib.Journal.Publisher
	rec.OAStatus = domain.OAStatusPublished
	rec.LandingPage = "https://doaj.org/article/" + id
	if len(bib.Journal.Language) > 0 {
		rec.Language = papersources.LanguageCode(bib.Journal.Language[0])
	}

	for _, au := range bib.Authors {
		rec.Authors = append(rec.Authors, au.Name)
	}
	for _, ident := range bib.Identifier {
		if strings.EqualFold(ident.Type, "doi") {
			rec.DOI = ident.ID
			break
		}
	}
	rec.Topics = append(rec.Topics, bib.Keywords...)
	for _, s := range bib.Subjects {
		rec.Topics = append(rec.Topics, s.Term)
	}

	candidates := make([]papersources.PDFCandidate, 0, len(bib.Links))
	for _, l := range bib.Links {
		candidates = append(candidates, papersources.PDFCandidate{URL: l.URL, Type: l.ContentType})
	}
	rec.BestPDFURL = papersources.BestPDFURL(candidates, "")
	if rec.BestPDFURL == "" {
		for _, l := range bib.Links {
			if strings.EqualFold(l.Type, "fulltext") && l.URL != "" {
				rec.LandingPage = l.URL
				break
			}
		}
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(a.LastUpdated)); err == nil {
		rec.UpdatedAt = &t
	}
	return rec, true
}
