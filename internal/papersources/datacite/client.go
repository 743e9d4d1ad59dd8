package datacite

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
	// DefaultBaseURL is the DataCite REST API base URL.
	DefaultBaseURL = "https://api.datacite.org"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 5.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is the default page[size].
	DefaultMaxResults = 50

	// MaxPageSize is the largest page[size] DataCite accepts.
	MaxPageSize = 1000

	sourceName = "DataCite"

	// resourceTypeText restricts results to text works.
	resourceTypeText = "text"

	openAccessRights = "info:eu-repo/semantics/openaccess"
)

// Config holds configuration for the DataCite connector.
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
	if c.MaxResults > MaxPageSize {
		c.MaxResults = MaxPageSize
	}
}

// Client implements papersources.Connector for DataCite.
type Client struct {
	config     Config
	httpClient *httpclient.Client
}

var _ papersources.Connector = (*Client)(nil)

// New creates a DataCite connector.
func New(cfg Config, opts ...httpclient.Option) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:       string(domain.SourceDataCite),
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
		}, opts...),
	}
}

// NewWithHTTPClient creates a DataCite connector using httpClient.
func NewWithHTTPClient(cfg Config, httpClient *httpclient.Client) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search lists text DOIs matching q.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]domain.OARecord, error) {
	if q.IsEmpty() {
		return []domain.OARecord{}, nil
	}

	params := url.Values{}
	params.Set("query", BuildQuery(q))
	params.Set("resource-type-id", resourceTypeText)
	params.Set("page[size]", strconv.Itoa(q.LimitOr(c.config.MaxResults)))
	endpoint := c.baseURL() + "/dois?" + params.Encode()

	var resp ListResponse
	if err := c.httpClient.GetJSON(ctx, "dois", endpoint, &resp); err != nil {
		return nil, err
	}

	records := make([]domain.OARecord, 0, len(resp.Data))
	for _, w := range resp.Data {
		if rec, ok := workToRecord(w); ok {
			records = append(records, rec)
		}
	}
	records = papersources.Finalize(records)
	if doi := q.NormalizedDOI(); doi != "" {
		records = papersources.FilterByDOI(records, doi)
	}
	return records, nil
}

// Fetch retrieves a work by DOI; the DOI is the DataCite source identifier.
func (c *Client) Fetch(ctx context.Context, sourceID string) (*domain.OARecord, error) {
	doi := domain.NormalizeDOI(sourceID)
	notFound := domain.NewNotFoundError("record", domain.RecordID(domain.SourceDataCite, sourceID))
	if doi == "" {
		return nil, notFound
	}

	var resp SingleResponse
	if err := c.httpClient.GetJSON(ctx, "doi", c.baseURL()+"/dois/"+doi, &resp); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, notFound
		}
		return nil, err
	}

	rec, ok := workToRecord(resp.Data)
	if !ok {
		return nil, notFound
	}
	records := papersources.Finalize([]domain.OARecord{rec})
	if len(records) == 0 {
		return nil, notFound
	}
	return &records[0], nil
}

// Source returns domain.SourceDataCite.
func (c *Client) Source() domain.Source {
	return domain.SourceDataCite
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

// BuildQuery renders the DataCite query string for q.
func BuildQuery(q papersources.Query) string {
	var query string
	if doi := q.NormalizedDOI(); doi != "" {
		query = fmt.Sprintf("doi:%q", doi)
	} else {
		query = q.Keywords()
	}
	if q.HasYearRange() {
		from, to := q.YearBounds("*")
		query = fmt.Sprintf("(%s) AND publicationYear:[%s TO %s]", query, from, to)
	}
	return query
}

func workToRecord(w Work) (domain.OARecord, bool) {
	a := w.Attributes
	doi := a.DOI
	if doi == "" {
		doi = w.ID
	}
	doi = domain.NormalizeDOI(doi)
	if doi == "" || len(a.Titles) == 0 {
		return domain.OARecord{}, false
	}

	created, ok := publicationDate(a)
	if !ok {
		return domain.OARecord{}, false
	}

	rec := domain.NewRecord(domain.SourceDataCite, doi, papersources.StripTags(primaryTitle(a.Titles)), created)
	rec.DOI = doi
	rec.Year = domain.IntPtr(created.Year())
	rec.Publisher = a.Publisher
	rec.Venue = a.Container.Title
	rec.Language = papersources.LanguageCode(a.Language)
	rec.LandingPage = a.URL
	if rec.LandingPage == "" {
		rec.LandingPage = "https://doi.org/" + doi
	}
	rec.OAStatus = oaStatus(a)

	for _, cr := range a.Creators {
		rec.Authors = append(rec.Authors, creatorName(cr))
	}
	for _, s := range a.Subjects {
		rec.Topics = append(rec.Topics, s.Subject)
	}
	for _, d := range a.Descriptions {
		if strings.EqualFold(d.DescriptionType, "Abstract") {
			rec.Abstract = papersources.StripTags(d.Description)
			break
		}
	}

	candidates := make([]papersources.PDFCandidate, 0, len(a.ContentURL))
	for _, u := range a.ContentURL {
		candidates = append(candidates, papersources.PDFCandidate{URL: u})
	}
	rec.BestPDFURL = papersources.BestPDFURL(candidates, "")

	if t, err := time.Parse(time.RFC3339, a.Updated); err == nil {
		rec.UpdatedAt = &t
	}
	return rec, true
}

// primaryTitle prefers the untyped main title over subtitles and translations.
func primaryTitle(titles []Title) string {
	for _, t := range titles {
		if t.TitleType == "" && strings.TrimSpace(t.Title) != "" {
			return t.Title
		}
	}
	return titles[0].Title
}

// creatorName renders people as "Given Family" and falls back to the display name.
func creatorName(c Creator) string {
	if c.GivenName != "" && c.FamilyName != "" {
		return c.GivenName + " " + c.FamilyName
	}
	return c.Name
}

// publicationDate uses the Issued date, then January 1 of publicationYear, then the registration time.
func publicationDate(a Attributes) (time.Time, bool) {
	for _, d := range a.Dates {
		if !strings.EqualFold(d.DateType, "Issued") {
			continue
		}
		for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
			if t, err := time.Parse(layout, strings.TrimSpace(d.Date)); err == nil {
				return t, true
			}
		}
	}
	if a.PublicationYear > 0 {
		return time.Date(a.PublicationYear, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	for _, ts := range []string{a.Registered, a.Created} {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func oaStatus(a Attributes) domain.OAStatus {
	switch a.Types.ResourceTypeGeneral {
	case "Preprint":
		return domain.OAStatusPreprint
	case "JournalArticle":
		return domain.OAStatusPublished
	}
	for _, r := range a.RightsList {
		if strings.EqualFold(r.RightsURI, openAccessRights) {
			return domain.OAStatusPublished
		}
	}
	return domain.OAStatusOther
}
