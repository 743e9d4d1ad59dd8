// Package typesense implements the search adapter over the Typesense REST API.
package typesense

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/search"
)

// Name is the backend kind.
const Name = "typesense"

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	// maxSortClauses is the Typesense limit on sort_by entries.
	maxSortClauses = 3

	maxFacetValues = 50

	apiKeyHeader = "X-TYPESENSE-API-KEY"
)

// Config holds Typesense connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	MaxRetries int
}

// Adapter implements search.Adapter for one Typesense collection.
type Adapter struct {
	config     Config
	httpClient *httpclient.Client
}

var _ search.Adapter = (*Adapter)(nil)

// New creates a Typesense adapter.
func New(cfg Config, opts ...httpclient.Option) *Adapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:       Name,
			Timeout:    cfg.Timeout,
			RateLimit:  100,
			MaxRetries: cfg.MaxRetries,
			Headers:    map[string]string{apiKeyHeader: cfg.APIKey},
		}, opts...),
	}
}

// Name returns "typesense".
func (a *Adapter) Name() string {
	return Name
}

// Schema returns the collection schema for the canonical field set.
func (a *Adapter) Schema() CollectionSchema {
	noIndex := false
	return CollectionSchema{
		Name: a.config.Collection,
		Fields: []Field{
			{Name: search.FieldTitle, Type: "string"},
			{Name: search.FieldTitleSort, Type: "string", Sort: true},
			{Name: search.FieldAuthors, Type: "string[]"},
			{Name: search.FieldFirstAuthor, Type: "string", Sort: true},
			{Name: search.FieldYear, Type: "int32", Facet: true},
			{Name: search.FieldVenue, Type: "string", Facet: true, Sort: true},
			{Name: search.FieldPublisher, Type: "string", Facet: true},
			{Name: search.FieldAbstract, Type: "string", Optional: true},
			{Name: search.FieldSource, Type: "string", Facet: true},
			{Name: "sourceId", Type: "string"},
			{Name: search.FieldOAStatus, Type: "string", Facet: true},
			{Name: search.FieldDOI, Type: "string"},
			{Name: search.FieldHasPDF, Type: "bool"},
			{Name: search.FieldTopics, Type: "string[]", Facet: true},
			{Name: "language", Type: "string", Facet: true},
			{Name: "bestPdfUrl", Type: "string", Optional: true, Index: &noIndex},
			{Name: "landingPage", Type: "string", Optional: true, Index: &noIndex},
			{Name: "citationCount", Type: "int32", Optional: true},
			{Name: search.FieldCreatedAt, Type: "int64", Sort: true},
			{Name: "updatedAt", Type: "int64", Optional: true},
		},
		DefaultSortingField: search.FieldCreatedAt,
	}
}

// EnsureIndex creates the collection when GET /collections/{c} returns 404.
func (a *Adapter) EnsureIndex(ctx context.Context) error {
	_, err := a.httpClient.Send(ctx, http.MethodGet, "get_collection", a.collectionURL(), "", nil)
	if err == nil {
		return nil
	}
	if !httpclient.IsStatus(err, http.StatusNotFound) {
		return err
	}
	err = a.httpClient.SendJSON(ctx, http.MethodPost, "create_collection", a.url("/collections"), a.Schema(), nil)
	if httpclient.IsStatus(err, http.StatusConflict) {
		return nil
	}
	return err
}

// UpsertMany imports records as JSONL with action=upsert.
func (a *Adapter) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	if len(records) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range search.NewDocuments(records) {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
	}

	endpoint := a.collectionURL() + "/documents/import?action=upsert"
	resp, err := a.httpClient.Send(ctx, http.MethodPost, "import", endpoint, "text/plain", body.Bytes())
	if err != nil {
		return err
	}
	return checkImport(resp)
}

// checkImport fails when any JSONL result line reports success=false.
func checkImport(body []byte) error {
	var failures []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var res ImportResult
		if err := json.Unmarshal(line, &res); err != nil {
			return fmt.Errorf("failed to parse import result: %w", err)
		}
		if !res.Success {
			failures = append(failures, res.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read import results: %w", err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d documents rejected: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

// SearchQuery renders p as documents/search query parameters.
func (a *Adapter) SearchQuery(p domain.SearchParams) url.Values {
	params := url.Values{}
	q := p.Q
	if q == "" {
		q = "*"
	}
	params.Set("q", q)
	params.Set("query_by", strings.Join(search.SearchableFields, ","))
	params.Set("query_by_weights", "5,3,2,2,1")
	if filter := FilterBy(p); filter != "" {
		params.Set("filter_by", filter)
	}
	params.Set("sort_by", SortBy(p.Sort))
	params.Set("facet_by", strings.Join(search.FacetFields, ","))
	params.Set("max_facet_values", strconv.Itoa(maxFacetValues))
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("per_page", strconv.Itoa(p.PageSize))
	return params
}

// Search runs p against documents/search.
func (a *Adapter) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error) {
	endpoint := a.collectionURL() + "/documents/search?" + a.SearchQuery(p).Encode()
	var result SearchResult
	if err := a.httpClient.GetJSON(ctx, "search", endpoint, &result); err != nil {
		return nil, err
	}

	resp := domain.NewSearchResponse(p)
	resp.Total = result.Found
	for _, h := range result.Hits {
		resp.Hits = append(resp.Hits, h.Document.Record())
	}
	fc := search.NewFacetCounts()
	for _, f := range result.FacetCounts {
		bucket, ok := fc[f.FieldName]
		if !ok {
			continue
		}
		for _, c := range f.Counts {
			if c.Value != "" && !(f.FieldName == search.FieldYear && c.Value == "0") {
				bucket[c.Value] = c.Count
			}
		}
	}
	resp.Facets = fc
	return resp, nil
}

// Get fetches a document by id.
func (a *Adapter) Get(ctx context.Context, id string) (*domain.OARecord, error) {
	var doc search.Document
	endpoint := a.collectionURL() + "/documents/" + url.PathEscape(id)
	if err := a.httpClient.GetJSON(ctx, "get_document", endpoint, &doc); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, domain.NewNotFoundError("record", id)
		}
		return nil, err
	}
	rec := doc.Record()
	return &rec, nil
}

// Ping calls GET /health.
func (a *Adapter) Ping(ctx context.Context) error {
	var health HealthResponse
	if err := a.httpClient.GetJSON(ctx, "health", a.url("/health"), &health); err != nil {
		return err
	}
	if !health.OK {
		return errors.New("typesense reports unhealthy")
	}
	return nil
}

func (a *Adapter) url(path string) string {
	return strings.TrimRight(a.config.URL, "/") + path
}

func (a *Adapter) collectionURL() string {
	return a.url("/collections/" + url.PathEscape(a.config.Collection))
}

// FilterBy renders the filter_by expression: `field:=[a,b]` clauses and the
// year range joined by &&.
func FilterBy(p domain.SearchParams) string {
	var clauses []string
	for _, f := range search.EqualityFilters(p) {
		values := make([]string, len(f.Values))
		for i, v := range f.Values {
			values[i] = quote(v)
		}
		clauses = append(clauses, fmt.Sprintf("%s:=[%s]", f.Field, strings.Join(values, ",")))
	}
	from, to := search.YearRange(p.Filters)
	if from != nil {
		clauses = append(clauses, fmt.Sprintf("%s:>=%d", search.FieldYear, *from))
	}
	if to != nil {
		clauses = append(clauses, fmt.Sprintf("%s:<=%d", search.FieldYear, *to))
	}
	if p.Filters.OpenAccessOnly {
		clauses = append(clauses, search.FieldHasPDF+":=true")
	}
	return strings.Join(clauses, " && ")
}

// SortBy renders sort_by, truncated to the three clauses Typesense accepts.
func SortBy(key domain.SortKey) string {
	clauses := search.SortClauses(key)
	if len(clauses) > maxSortClauses {
		clauses = clauses[:maxSortClauses]
	}
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		field := c.Field
		if field == search.FieldRelevance {
			field = "_text_match"
		}
		dir := "asc"
		if c.Desc {
			dir = "desc"
		}
		parts[i] = field + ":" + dir
	}
	return strings.Join(parts, ",")
}

// quote wraps a filter value in backticks so commas and brackets are literal.
func quote(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}
