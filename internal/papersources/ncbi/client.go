package ncbi

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
	// DefaultBaseURL is the base URL for the NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the limit without an API key. With a key NCBI allows 10 req/s.
	DefaultRateLimit = 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is the default retmax for esearch.
	DefaultMaxResults = 50

	// MaxResultsLimit is the largest retmax the API accepts.
	MaxResultsLimit = 10000

	// openLowerYear and openUpperYear stand in for missing PDAT range bounds.
	openLowerYear = 1800
	openUpperYear = 3000

	sourceName = "PubMed"
)

// Config holds the configuration for the NCBI connector.
type Config struct {
	BaseURL string
	// APIKey is the optional NCBI API key for higher rate limits.
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
	if c.MaxResults > MaxResultsLimit {
		c.MaxResults = MaxResultsLimit
	}
}

// Client implements papersources.Connector for NCBI PubMed.
type Client struct {
	config     Config
	httpClient *httpclient.Client
}

var _ papersources.Connector = (*Client)(nil)

// New creates an NCBI connector.
func New(cfg Config, opts ...httpclient.Option) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:       string(domain.SourceNCBI),
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
			UserAgent:  "OA-Metasearch/1.0 (mailto:support@helixir.io)",
		}, opts...),
	}
}

// NewWithHTTPClient creates an NCBI connector using httpClient.
func NewWithHTTPClient(cfg Config, httpClient *httpclient.Client) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search runs esearch for PMIDs and then efetch for the articles.
// When esearch returns no IDs the efetch call is skipped.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]domain.OARecord, error) {
	if q.IsEmpty() {
		return []domain.OARecord{}, nil
	}

	ids, err := c.esearch(ctx, buildTerm(q), q.LimitOr(c.config.MaxResults))
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}
	if len(ids) == 0 {
		return []domain.OARecord{}, nil
	}

	set, err := c.efetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	records := articlesToRecords(set.Articles)
	if doi := q.NormalizedDOI(); doi != "" {
		records = papersources.FilterByDOI(records, doi)
	}
	return records, nil
}

// Fetch retrieves a single article by PMID.
func (c *Client) Fetch(ctx context.Context, sourceID string) (*domain.OARecord, error) {
	if _, err := strconv.ParseUint(sourceID, 10, 64); err != nil {
		return nil, domain.NewNotFoundError("record", domain.RecordID(domain.SourceNCBI, sourceID))
	}

	set, err := c.efetch(ctx, []string{sourceID})
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}
	records := articlesToRecords(set.Articles)
	if len(records) == 0 {
		return nil, domain.NewNotFoundError("record", domain.RecordID(domain.SourceNCBI, sourceID))
	}
	return &records[0], nil
}

// Source returns domain.SourceNCBI.
func (c *Client) Source() domain.Source {
	return domain.SourceNCBI
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildTerm renders the esearch term: "<doi>[DOI]" or the keywords, plus a PDAT range.
func buildTerm(q papersources.Query) string {
	var term string
	if doi := q.NormalizedDOI(); doi != "" {
		term = doi + "[DOI]"
	} else {
		term = q.Keywords()
	}

	if q.HasYearRange() {
		from, to := openLowerYear, openUpperYear
		if q.YearFrom != nil {
			from = *q.YearFrom
		}
		if q.YearTo != nil {
			to = *q.YearTo
		}
		term = fmt.Sprintf(`%s AND ("%d"[PDAT] : "%d"[PDAT])`, term, from, to)
	}
	return term
}

func (c *Client) esearch(ctx context.Context, term string, retmax int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(retmax))
	params.Set("sort", "relevance")
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}

	var resp ESearchResponse
	if err := c.httpClient.GetJSON(ctx, "esearch", c.config.BaseURL+"/esearch.fcgi?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Result.Error != "" {
		return nil, domain.NewExternalAPIError(string(domain.SourceNCBI), 200, resp.Result.Error, nil)
	}
	return resp.Result.IDList, nil
}

func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}

	var set PubmedArticleSet
	if err := c.httpClient.GetXML(ctx, "efetch", c.config.BaseURL+"/efetch.fcgi?"+params.Encode(), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func articlesToRecords(articles []PubmedArticle) []domain.OARecord {
	records := make([]domain.OARecord, 0, len(articles))
	for _, a := range articles {
		if rec, ok := articleToRecord(a); ok {
			records = append(records, rec)
		}
	}
	return papersources.Finalize(records)
}

// articleToRecord maps a PubmedArticle. A PMC id marks the article as published
// open access and yields a synthesized PMC PDF link.
func articleToRecord(article PubmedArticle) (domain.OARecord, bool) {
	citation := article.MedlineCitation
	pmid := strings.TrimSpace(citation.PMID.Value)
	if pmid == "" {
		return domain.OARecord{}, false
	}

	published, ok := extractPublicationDate(citation)
	if !ok {
		return domain.OARecord{}, false
	}

	rec := domain.NewRecord(domain.SourceNCBI, pmid, citation.Article.ArticleTitle, published)
	rec.Year = domain.IntPtr(published.Year())
	rec.DOI = extractDOI(citation.Article, article.PubmedData)
	rec.Abstract = extractAbstract(citation.Article.Abstract)
	rec.Authors = extractAuthors(citation.Article.AuthorList)
	rec.Venue = citation.Article.Journal.Title
	if rec.Venue == "" {
		rec.Venue = citation.Article.Journal.ISOAbbreviation
	}
	rec.LandingPage = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	if len(citation.Article.Language) > 0 {
		rec.Language = papersources.LanguageCode(citation.Article.Language[0])
	}

	if citation.MeshHeadingList != nil {
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			rec.Topics = append(rec.Topics, mh.DescriptorName)
		}
	}
	if citation.KeywordList != nil {
		rec.Topics = append(rec.Topics, citation.KeywordList.Keywords...)
	}

	rec.OAStatus = domain.OAStatusOther
	if pmcid := extractPMCID(article.PubmedData); pmcid != "" {
		rec.OAStatus = domain.OAStatusPublished
		rec.BestPDFURL = papersources.PMCPDFURL(pmcid)
	}

	if citation.DateRevised != nil {
		if t, ok := parseDate(citation.DateRevised.Year, citation.DateRevised.Month, citation.DateRevised.Day); ok {
			rec.UpdatedAt = &t
		}
	}
	return rec, true
}

// extractDOI checks ELocationID first, then ArticleIdList.
func extractDOI(article Article, data PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}
	for _, aid := range data.ArticleIDList.ArticleIDs {
		if aid.IDType == "doi" {
			return aid.Value
		}
	}
	return ""
}

func extractPMCID(data PubmedData) string {
	for _, aid := range data.ArticleIDList.ArticleIDs {
		if aid.IDType == "pmc" {
			return strings.TrimSpace(aid.Value)
		}
	}
	return ""
}

// extractPublicationDate prefers the electronic ArticleDate, then the journal PubDate.
func extractPublicationDate(citation MedlineCitation) (time.Time, bool) {
	for _, ad := range citation.Article.ArticleDate {
		if ad.DateType == "" || strings.EqualFold(ad.DateType, "electronic") {
			if t, ok := parseDate(ad.Year, ad.Month, ad.Day); ok {
				return t, true
			}
		}
	}

	pub := citation.Article.Journal.JournalIssue.PubDate
	if pub.Year != "" {
		return parseDate(pub.Year, pub.Month, pub.Day)
	}
	if pub.MedlineDate != "" {
		if year := extractYearFromMedlineDate(pub.MedlineDate); year > 0 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y <= 0 {
		return time.Time{}, false
	}
	d := 1
	if parsed, err := strconv.Atoi(strings.TrimSpace(day)); err == nil && parsed >= 1 && parsed <= 31 {
		d = parsed
	}
	return time.Date(y, parseMonth(month), d, 0, 0, 0, 0, time.UTC), true
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseMonth accepts numeric months and English names or abbreviations.
func parseMonth(month string) time.Month {
	month = strings.TrimSpace(month)
	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return time.Month(m)
	}
	if len(month) >= 3 {
		if m, ok := monthNames[strings.ToLower(month[:3])]; ok {
			return m
		}
	}
	return time.January
}

// extractYearFromMedlineDate handles "2020 Jan-Feb", "2020 Spring" and "2020-2021".
func extractYearFromMedlineDate(medlineDate string) int {
	parts := strings.Fields(medlineDate)
	if len(parts) == 0 {
		return 0
	}
	year, err := strconv.Atoi(strings.Split(parts[0], "-")[0])
	if err != nil {
		return 0
	}
	return year
}

// extractAbstract joins structured abstract sections as "LABEL: text".
func extractAbstract(abstract *Abstract) string {
	if abstract == nil {
		return ""
	}
	parts := make([]string, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			text = at.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func extractAuthors(list *AuthorList) []string {
	if list == nil {
		return []string{}
	}
	authors := make([]string, 0, len(list.Authors))
	for _, a := range list.Authors {
		if a.ValidYN == "N" {
			continue
		}
		name := a.CollectiveName
		if name == "" {
			name = strings.TrimSpace(a.ForeName + " " + a.LastName)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}
