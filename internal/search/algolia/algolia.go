// Package algolia implements the search adapter over the Algolia REST API.
//
// Algolia ranks by a fixed per-index criteria list, so every non-relevance
// sort key is served by a standard replica named {index}_{sortKey} whose
// ranking puts the sort attribute first.
package algolia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/search"
)

// Name is the backend kind.
const Name = "algolia"

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	// DefaultTaskPollInterval is the delay between task status polls.
	DefaultTaskPollInterval = 200 * time.Millisecond

	// DefaultTaskTimeout bounds the wait for one write to be published.
	DefaultTaskTimeout = 30 * time.Second

	maxFacetValues = 50

	taskPublished = "published"
)

// defaultRanking is Algolia's built-in criteria order.
var defaultRanking = []string{"typo", "geo", "words", "filters", "proximity", "attribute", "exact", "custom"}

// Config holds Algolia connection settings.
type Config struct {
	AppID  string
	APIKey string
	Index  string

	// BaseURL replaces both the read and write hosts.
	BaseURL string

	Timeout          time.Duration
	TaskPollInterval time.Duration
	TaskTimeout      time.Duration
	MaxRetries       int
}

// Adapter implements search.Adapter for one Algolia index and its replicas.
type Adapter struct {
	config     Config
	readHost   string
	writeHost  string
	httpClient *httpclient.Client
}

var _ search.Adapter = (*Adapter)(nil)

// New creates an Algolia adapter.
func New(cfg Config, opts ...httpclient.Option) *Adapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TaskPollInterval == 0 {
		cfg.TaskPollInterval = DefaultTaskPollInterval
	}
	if cfg.TaskTimeout == 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}

	a := &Adapter{
		config:    cfg,
		readHost:  "https://" + cfg.AppID + "-dsn.algolia.net",
		writeHost: "https://" + cfg.AppID + ".algolia.net",
		httpClient: httpclient.New(httpclient.Config{
			Name:       Name,
			Timeout:    cfg.Timeout,
			RateLimit:  50,
			MaxRetries: cfg.MaxRetries,
			Headers: map[string]string{
				"X-Algolia-Application-Id": cfg.AppID,
				"X-Algolia-API-Key":        cfg.APIKey,
			},
		}, opts...),
	}
	if cfg.BaseURL != "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		a.readHost, a.writeHost = base, base
	}
	return a
}

// Name returns "algolia".
func (a *Adapter) Name() string {
	return Name
}

// ReplicaSortKeys lists the sort keys served by a replica, in creation order.
func ReplicaSortKeys() []domain.SortKey {
	return []domain.SortKey{
		domain.SortDate, domain.SortDateAsc,
		domain.SortAuthor, domain.SortAuthorDesc,
		domain.SortVenue, domain.SortVenueDesc,
		domain.SortTitle, domain.SortTitleDesc,
	}
}

// IndexFor returns the index or replica that serves key.
func (a *Adapter) IndexFor(key domain.SortKey) string {
	for _, k := range ReplicaSortKeys() {
		if k == key {
			return a.config.Index + "_" + string(key)
		}
	}
	return a.config.Index
}

// PrimarySettings returns the settings of the primary index.
func (a *Adapter) PrimarySettings() Settings {
	replicas := make([]string, 0, len(ReplicaSortKeys()))
	for _, k := range ReplicaSortKeys() {
		replicas = append(replicas, a.IndexFor(k))
	}
	return Settings{
		SearchableAttributes: []string{
			search.FieldTitle, search.FieldAuthors, search.FieldAbstract,
			search.FieldTopics, search.FieldVenue,
		},
		AttributesForFaceting: facetingAttributes(),
		CustomRanking:         []string{"desc(" + search.FieldCreatedAt + ")"},
		Replicas:              replicas,
		MaxValuesPerFacet:     maxFacetValues,
	}
}

// ReplicaSettings returns the ranking for the replica serving key.
func ReplicaSettings(key domain.SortKey) Settings {
	var ranking []string
	for _, c := range search.SortClauses(key) {
		if c.Field == search.FieldRelevance || c.Field == search.FieldCreatedAt {
			continue
		}
		ranking = append(ranking, rankingCriterion(c))
	}
	ranking = append(ranking, defaultRanking...)
	return Settings{
		Ranking:               ranking,
		AttributesForFaceting: facetingAttributes(),
		CustomRanking:         []string{"desc(" + search.FieldCreatedAt + ")"},
		MaxValuesPerFacet:     maxFacetValues,
	}
}

func rankingCriterion(c search.SortClause) string {
	if c.Desc {
		return "desc(" + c.Field + ")"
	}
	return "asc(" + c.Field + ")"
}

func facetingAttributes() []string {
	attrs := make([]string, 0, len(search.FacetFields)+2)
	attrs = append(attrs, search.FacetFields...)
	return append(attrs, "filterOnly("+search.FieldDOI+")", "filterOnly("+search.FieldHasPDF+")")
}

// EnsureIndex writes primary and replica settings when the primary index is missing.
func (a *Adapter) EnsureIndex(ctx context.Context) error {
	var existing Settings
	err := a.httpClient.GetJSON(ctx, "get_settings", a.settingsURL(a.config.Index), &existing)
	if err == nil {
		return nil
	}
	if !httpclient.IsStatus(err, http.StatusNotFound) {
		return err
	}

	if err := a.putSettings(ctx, a.config.Index, a.PrimarySettings()); err != nil {
		return err
	}
	for _, k := range ReplicaSortKeys() {
		if err := a.putSettings(ctx, a.IndexFor(k), ReplicaSettings(k)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) putSettings(ctx context.Context, index string, s Settings) error {
	var task TaskResponse
	if err := a.httpClient.SendJSON(ctx, http.MethodPut, "set_settings", a.settingsURL(index), s, &task); err != nil {
		return err
	}
	return a.waitForTask(ctx, index, task.TaskID)
}

// UpsertMany replaces objects through one batch and waits until it is published.
func (a *Adapter) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := BatchRequest{Requests: make([]BatchOperation, len(records))}
	for i, d := range search.NewDocuments(records) {
		batch.Requests[i] = BatchOperation{Action: "updateObject", Body: Object{ObjectID: d.ID, Document: d}}
	}

	var task TaskResponse
	if err := a.httpClient.SendJSON(ctx, http.MethodPost, "batch", a.indexURL(a.writeHost, a.config.Index)+"/batch", batch, &task); err != nil {
		return err
	}
	return a.waitForTask(ctx, a.config.Index, task.TaskID)
}

func (a *Adapter) waitForTask(ctx context.Context, index string, taskID int64) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.TaskTimeout)
	defer cancel()

	ticker := time.NewTicker(a.config.TaskPollInterval)
	defer ticker.Stop()

	endpoint := fmt.Sprintf("%s/task/%d", a.indexURL(a.writeHost, index), taskID)
	for {
		var status TaskStatus
		if err := a.httpClient.GetJSON(ctx, "get_task", endpoint, &status); err != nil {
			return err
		}
		if status.Status == taskPublished {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for task %d on %s: %w", taskID, index, ctx.Err())
		case <-ticker.C:
		}
	}
}

// BuildQuery translates p into a query body. Algolia pages are zero-based.
func BuildQuery(p domain.SearchParams) QueryRequest {
	return QueryRequest{
		Query:             p.Q,
		Page:              p.Page - 1,
		HitsPerPage:       p.PageSize,
		Facets:            search.FacetFields,
		FacetFilters:      FacetFilters(p),
		NumericFilters:    NumericFilters(p),
		MaxValuesPerFacet: maxFacetValues,
	}
}

// Search queries the index or replica that serves p.Sort.
func (a *Adapter) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error) {
	var result QueryResponse
	endpoint := a.indexURL(a.readHost, a.IndexFor(p.Sort)) + "/query"
	if err := a.httpClient.SendJSON(ctx, http.MethodPost, "query", endpoint, BuildQuery(p), &result); err != nil {
		return nil, err
	}

	resp := domain.NewSearchResponse(p)
	resp.Total = result.NbHits
	for _, h := range result.Hits {
		resp.Hits = append(resp.Hits, h.Record())
	}
	fc := search.NewFacetCounts()
	for field, dist := range result.Facets {
		bucket, ok := fc[field]
		if !ok {
			continue
		}
		for value, count := range dist {
			if value != "" && !(field == search.FieldYear && value == "0") {
				bucket[value] = count
			}
		}
	}
	resp.Facets = fc
	return resp, nil
}

// Get fetches one object by record id.
func (a *Adapter) Get(ctx context.Context, id string) (*domain.OARecord, error) {
	var obj Object
	endpoint := a.indexURL(a.readHost, a.config.Index) + "/" + url.PathEscape(id)
	if err := a.httpClient.GetJSON(ctx, "get_object", endpoint, &obj); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, domain.NewNotFoundError("record", id)
		}
		return nil, err
	}
	rec := obj.Record()
	return &rec, nil
}

// Ping calls GET /1/isalive on the read host.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.httpClient.Send(ctx, http.MethodGet, "isalive", a.readHost+"/1/isalive", "", nil)
	return err
}

func (a *Adapter) indexURL(host, index string) string {
	return host + "/1/indexes/" + url.PathEscape(index)
}

func (a *Adapter) settingsURL(index string) string {
	return a.indexURL(a.writeHost, index) + "/settings"
}

// FacetFilters renders equality filters: inner arrays are OR groups, the outer array is ANDed.
func FacetFilters(p domain.SearchParams) []any {
	var out []any
	for _, f := range search.EqualityFilters(p) {
		group := make([]string, len(f.Values))
		for i, v := range f.Values {
			group[i] = f.Field + ":" + v
		}
		out = append(out, group)
	}
	if p.Filters.OpenAccessOnly {
		out = append(out, search.FieldHasPDF+":true")
	}
	return out
}

// NumericFilters renders the year range.
func NumericFilters(p domain.SearchParams) []string {
	var out []string
	from, to := search.YearRange(p.Filters)
	if from != nil {
		out = append(out, fmt.Sprintf("%s>=%d", search.FieldYear, *from))
	}
	if to != nil {
		out = append(out, fmt.Sprintf("%s<=%d", search.FieldYear, *to))
	}
	return out
}
