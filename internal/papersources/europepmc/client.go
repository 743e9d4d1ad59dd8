package europepmc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

const (
	// DefaultBaseURL is the Europe PMC REST base URL.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultRateLimit is a conservative request rate; Europe PMC publishes no hard limit.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is the default pageSize.
	DefaultMaxResults = 50

	// MaxPageSize is the largest pageSize the API accepts.
	MaxPageSize = 1000
)

// Config holds configuration for a Europe PMC backed connector.
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

// Variant narrows the Europe PMC index to one logical source.
type Variant struct {
	// Source is the record source the variant produces.
	Source domain.Source
	// Name is the human-readable source name.
	Name string
	// Filter is ANDed onto every query, e.g. (SRC:PPR) AND (PUBLISHER:"bioRxiv").
	Filter string
	// OAStatus overrides the per-record status when set.
	OAStatus domain.OAStatus
	// Publisher is used when a record carries no publisher.
	Publisher string
}

// Default is the unrestricted Europe PMC variant.
var Default = Variant{Source: domain.SourceEuropePMC, Name: "Europe PMC"}

// Client implements papersources.Connector over the Europe PMC search API.
type Client struct {
	config     Config
	variant    Variant
	httpClient *httpclient.Client
}

var _ papersources.Connector = (*Client)(nil)

// New creates a Europe PMC connector.
func New(cfg Config, opts ...httpclient.Option) *Client {
	return NewVariant(cfg, Default, opts...)
}

// NewVariant creates a connector restricted to the given variant.
func NewVariant(cfg Config, v Variant, opts ...httpclient.Option) *Client {
	cfg.applyDefaults()
	return &Client{
		config:  cfg,
		variant: v,
		httpClient: httpclient.New(httpclient.Config{
			Name:       string(v.Source),
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
		}, opts...),
	}
}

// NewWithHTTPClient creates a connector for variant v using httpClient.
func NewWithHTTPClient(cfg Config, v Variant, httpClient *httpclient.Client) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, variant: v, httpClient: httpClient}
}

// Search queries Europe PMC with DOI:"..." or keywords and a PUB_YEAR range.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]domain.OARecord, error) {
	if q.IsEmpty() {
		return []domain.OARecord{}, nil
	}

	results, err := c.search(ctx, c.BuildQuery(q), q.LimitOr(c.config.MaxResults))
	if err != nil {
		return nil, err
	}

	records := c.resultsToRecords(results)
	if doi := q.NormalizedDOI(); doi != "" {
		records = papersources.FilterByDOI(records, doi)
	}
	return records, nil
}

// Fetch looks a record up by its source id. Ids minted by this connector
// are SRC/ID; a bare PMCID or external id is also accepted.
func (c *Client) Fetch(ctx context.Context, sourceID string) (*domain.OARecord, error) {
	var query string
	src, extID := ParseSourceID(sourceID)
	switch {
	case src != "":
		query = fmt.Sprintf("EXT_ID:%q AND SRC:%q", extID, src)
	case strings.HasPrefix(strings.ToUpper(extID), "PMC"):
		query = fmt.Sprintf("PMCID:%q", extID)
	default:
		query = fmt.Sprintf("EXT_ID:%q", extID)
	}
	if c.variant.Filter != "" {
		query += " AND " + c.variant.Filter
	}

	results, err := c.search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	records := c.resultsToRecords(results)
	if len(records) == 0 {
		return nil, domain.NewNotFoundError("record", domain.RecordID(c.variant.Source, sourceID))
	}
	return &records[0], nil
}

// SourceID joins a Europe PMC source code and external id. External ids
// are only unique within one source (MED, PMC, PPR, AGR, CBA, ...).
func SourceID(src, extID string) string {
	src = strings.ToUpper(strings.TrimSpace(src))
	extID = strings.TrimSpace(extID)
	if src == "" {
		return extID
	}
	return src + "/" + extID
}

// ParseSourceID splits a SourceID. src is empty when sourceID has no
// source code prefix.
func ParseSourceID(sourceID string) (src, extID string) {
	sourceID = strings.TrimSpace(sourceID)
	prefix, rest, ok := strings.Cut(sourceID, "/")
	if !ok || rest == "" || !isSourceCode(prefix) {
		return "", sourceID
	}
	return strings.ToUpper(prefix), rest
}

func isSourceCode(s string) bool {
	if s == "" || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// Source returns the variant's source.
func (c *Client) Source() domain.Source {
	return c.variant.Source
}

// Name returns the variant's display name.
func (c *Client) Name() string {
	return c.variant.Name
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// BuildQuery renders the Europe PMC query string for q, including the variant filter.
func (c *Client) BuildQuery(q papersources.Query) string {
	var parts []string
	if doi := q.NormalizedDOI(); doi != "" {
		parts = append(parts, fmt.Sprintf("DOI:%q", doi))
	} else {
		kw := q.Keywords()
		if c.variant.Filter != "" || q.HasYearRange() {
			kw = "(" + kw + ")"
		}
		parts = append(parts, kw)
	}
	if q.HasYearRange() {
		from, to := q.YearBounds("*")
		parts = append(parts, fmt.Sprintf("PUB_YEAR:[%s TO %s]", from, to))
	}
	if c.variant.Filter != "" {
		parts = append(parts, c.variant.Filter)
	}
	return strings.Join(parts, " AND ")
}

func (c *Client) search(ctx context.Context, query string, pageSize int) ([]Result, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("resultType", "core")
	params.Set("pageSize", strconv.Itoa(pageSize))

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/search?" + params.Encode()
	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, "search", endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.ResultList.Results, nil
}

func (c *Client) resultsToRecords(results []Result) []domain.OARecord {
	records := make([]domain.OARecord, 0, len(results))
	for _, r := range results {
		if rec, ok := c.resultToRecord(r); ok {
			records = append(records, rec)
		}
	}
	return papersources.Finalize(records)
}

// resultToRecord maps a core result. Results with no id or no usable date are skipped.
func (c *Client) resultToRecord(r Result) (domain.OARecord, bool) {
	if strings.TrimSpace(r.ID) == "" {
		return domain.OARecord{}, false
	}
	published, ok := publicationDate(r)
	if !ok {
		return domain.OARecord{}, false
	}

	rec := domain.NewRecord(c.variant.Source, SourceID(r.Source, r.ID), papersources.StripTags(r.Title), published)
	rec.DOI = r.DOI
	rec.Abstract = papersources.StripTags(r.AbstractText)
	rec.Authors = authors(r)
	rec.Year = domain.IntPtr(published.Year())
	if y, err := strconv.Atoi(r.PubYear); err == nil && y > 0 {
		rec.Year = domain.IntPtr(y)
	}
	if r.JournalInfo != nil {
		rec.Venue = r.JournalInfo.Journal.Title
		if rec.Venue == "" {
			rec.Venue = r.JournalInfo.Journal.ISOAbbreviation
		}
	}
	if r.BookOrReportDetails != nil {
		rec.Publisher = r.BookOrReportDetails.Publisher
	}
	if rec.Publisher == "" {
		rec.Publisher = c.variant.Publisher
	}
	if r.Language != "" {
		rec.Language = papersources.LanguageCode(r.Language)
	}

	if r.MeshHeadingList != nil {
		for _, mh := range r.MeshHeadingList.MeshHeadings {
			rec.Topics = append(rec.Topics, mh.DescriptorName)
		}
	}
	if r.KeywordList != nil {
		rec.Topics = append(rec.Topics, r.KeywordList.Keywords...)
	}

	rec.BestPDFURL = bestPDFURL(r)
	rec.LandingPage = landingPage(r)

	switch {
	case c.variant.OAStatus != "":
		rec.OAStatus = c.variant.OAStatus
	case r.IsOpenAccess == "Y" || r.PMCID != "":
		rec.OAStatus = domain.OAStatusPublished
	default:
		rec.OAStatus = domain.OAStatusOther
	}

	if t, err := time.Parse("2006-01-02", r.DateOfRevision); err == nil {
		rec.UpdatedAt = &t
	}
	return rec, true
}

func publicationDate(r Result) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(r.FirstPublicationDate)); err == nil {
		return t, true
	}
	if y, err := strconv.Atoi(strings.TrimSpace(r.PubYear)); err == nil && y > 0 {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// authors prefers the structured author list and falls back to splitting authorString.
func authors(r Result) []string {
	out := []string{}
	if r.AuthorList != nil && len(r.AuthorList.Authors) > 0 {
		for _, a := range r.AuthorList.Authors {
			switch {
			case a.FullName != "":
				out = append(out, a.FullName)
			case a.CollectiveName != "":
				out = append(out, a.CollectiveName)
			default:
				out = append(out, strings.TrimSpace(a.FirstName+" "+a.LastName))
			}
		}
		return out
	}
	for _, name := range strings.Split(strings.TrimSuffix(strings.TrimSpace(r.AuthorString), "."), ",") {
		out = append(out, name)
	}
	return out
}

// bestPDFURL prefers open or free pdf links, then any .pdf link, then the PMC PDF.
func bestPDFURL(r Result) string {
	var candidates []papersources.PDFCandidate
	if r.FullTextURLList != nil {
		for _, u := range r.FullTextURLList.URLs {
			if u.AvailabilityCode == "S" {
				continue
			}
			candidates = append(candidates, papersources.PDFCandidate{URL: u.URL, Type: u.DocumentStyle})
		}
	}
	return papersources.BestPDFURL(candidates, r.PMCID)
}

func landingPage(r Result) string {
	if r.Source != "" {
		return "https://europepmc.org/article/" + r.Source + "/" + r.ID
	}
	if r.DOI != "" {
		return "https://doi.org/" + domain.NormalizeDOI(r.DOI)
	}
	return ""
}
