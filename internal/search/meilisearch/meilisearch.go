// Package meilisearch implements the search adapter over the Meilisearch REST API.
package meilisearch

import (
	"context"
	"encoding/base64"
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
const Name = "meilisearch"

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	// DefaultTaskPollInterval is the delay between GET /tasks/{uid} polls.
	DefaultTaskPollInterval = 100 * time.Millisecond

	// DefaultTaskTimeout bounds the wait for one enqueued task.
	DefaultTaskTimeout = 30 * time.Second

	primaryKey = "key"
)

// Task statuses.
const (
	TaskEnqueued   = "enqueued"
	TaskProcessing = "processing"
	TaskSucceeded  = "succeeded"
	TaskFailed     = "failed"
	TaskCanceled   = "canceled"
)

// ErrTaskFailed is returned when an enqueued task ends failed or canceled.
var ErrTaskFailed = errors.New("meilisearch task failed")

// Config holds Meilisearch connection settings.
type Config struct {
	URL              string
	APIKey           string
	Index            string
	Timeout          time.Duration
	TaskPollInterval time.Duration
	TaskTimeout      time.Duration
	MaxRetries       int
}

// Adapter implements search.Adapter for one Meilisearch index.
type Adapter struct {
	config     Config
	httpClient *httpclient.Client
}

var _ search.Adapter = (*Adapter)(nil)

// New creates a Meilisearch adapter.
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
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &Adapter{
		config: cfg,
		httpClient: httpclient.New(httpclient.Config{
			Name:       Name,
			Timeout:    cfg.Timeout,
			RateLimit:  100,
			BurstSize:  100,
			MaxRetries: cfg.MaxRetries,
			Headers:    headers,
		}, opts...),
	}
}

// Name returns "meilisearch".
func (a *Adapter) Name() string {
	return Name
}

// DocumentKey encodes a record id into a valid Meilisearch primary key.
func DocumentKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// IndexSettings lists the attributes needed for search, filters and sort.
func IndexSettings() Settings {
	return Settings{
		SearchableAttributes: search.SearchableFields,
		FilterableAttributes: []string{
			search.FieldDOI, search.FieldSource, search.FieldYear, search.FieldVenue,
			search.FieldPublisher, search.FieldTopics, search.FieldOAStatus, search.FieldHasPDF,
		},
		SortableAttributes: []string{
			search.FieldYear, search.FieldCreatedAt, search.FieldFirstAuthor,
			search.FieldVenue, search.FieldTitleSort,
		},
	}
}

// EnsureIndex creates the index and applies settings when it does not exist.
func (a *Adapter) EnsureIndex(ctx context.Context) error {
	_, err := a.httpClient.Send(ctx, http.MethodGet, "get_index", a.indexURL(), "", nil)
	if err == nil {
		return nil
	}
	if !httpclient.IsStatus(err, http.StatusNotFound) {
		return err
	}

	var task Task
	req := CreateIndexRequest{UID: a.config.Index, PrimaryKey: primaryKey}
	if err := a.httpClient.SendJSON(ctx, http.MethodPost, "create_index", a.url("/indexes"), req, &task); err != nil {
		return err
	}
	if err := a.waitForTask(ctx, task.TaskUID); err != nil {
		return err
	}

	if err := a.httpClient.SendJSON(ctx, http.MethodPatch, "settings", a.indexURL()+"/settings", IndexSettings(), &task); err != nil {
		return err
	}
	return a.waitForTask(ctx, task.TaskUID)
}

// UpsertMany adds or replaces documents and waits for the task to finish.
func (a *Adapter) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]Document, len(records))
	for i, d := range search.NewDocuments(records) {
		docs[i] = Document{Key: DocumentKey(d.ID), Document: d}
	}

	var task Task
	endpoint := a.indexURL() + "/documents?primaryKey=" + primaryKey
	if err := a.httpClient.SendJSON(ctx, http.MethodPost, "add_documents", endpoint, docs, &task); err != nil {
		return err
	}
	return a.waitForTask(ctx, task.TaskUID)
}

// waitForTask polls GET /tasks/{uid} until the task leaves the queue.
func (a *Adapter) waitForTask(ctx context.Context, uid int64) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.TaskTimeout)
	defer cancel()

	ticker := time.NewTicker(a.config.TaskPollInterval)
	defer ticker.Stop()

	endpoint := a.url("/tasks/" + strconv.FormatInt(uid, 10))
	for {
		var status TaskStatus
		if err := a.httpClient.GetJSON(ctx, "get_task", endpoint, &status); err != nil {
			return err
		}
		switch status.Status {
		case TaskSucceeded:
			return nil
		case TaskFailed, TaskCanceled:
			msg := status.Status
			if status.Error != nil {
				msg = status.Error.Code + ": " + status.Error.Message
			}
			return fmt.Errorf("%w: task %d %s", ErrTaskFailed, uid, msg)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for task %d: %w", uid, ctx.Err())
		case <-ticker.C:
		}
	}
}

// BuildSearchRequest translates p into a search request body.
func BuildSearchRequest(p domain.SearchParams) SearchRequest {
	return SearchRequest{
		Q:           p.Q,
		Filter:      Filter(p),
		Sort:        Sort(p.Sort),
		Facets:      search.FacetFields,
		Page:        p.Page,
		HitsPerPage: p.PageSize,
	}
}

// Search runs p against POST /indexes/{i}/search.
func (a *Adapter) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error) {
	var result SearchResponse
	if err := a.httpClient.SendJSON(ctx, http.MethodPost, "search", a.indexURL()+"/search", BuildSearchRequest(p), &result); err != nil {
		return nil, err
	}

	resp := domain.NewSearchResponse(p)
	resp.Total = result.TotalHits
	for _, h := range result.Hits {
		resp.Hits = append(resp.Hits, h.Record())
	}
	fc := search.NewFacetCounts()
	for field, dist := range result.FacetDistribution {
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

// Get fetches a document by record id.
func (a *Adapter) Get(ctx context.Context, id string) (*domain.OARecord, error) {
	var doc Document
	endpoint := a.indexURL() + "/documents/" + DocumentKey(id)
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
	var health Health
	if err := a.httpClient.GetJSON(ctx, "health", a.url("/health"), &health); err != nil {
		return err
	}
	if health.Status != "available" {
		return fmt.Errorf("meilisearch status %q", health.Status)
	}
	return nil
}

func (a *Adapter) url(path string) string {
	return strings.TrimRight(a.config.URL, "/") + path
}

func (a *Adapter) indexURL() string {
	return a.url("/indexes/" + url.PathEscape(a.config.Index))
}

// Filter renders the filter array: inner arrays are OR groups, the outer array is ANDed.
func Filter(p domain.SearchParams) []any {
	var filter []any
	for _, f := range search.EqualityFilters(p) {
		group := make([]string, len(f.Values))
		for i, v := range f.Values {
			group[i] = fmt.Sprintf("%s = %s", f.Field, quote(v))
		}
		filter = append(filter, group)
	}
	from, to := search.YearRange(p.Filters)
	if from != nil {
		filter = append(filter, fmt.Sprintf("%s >= %d", search.FieldYear, *from))
	}
	if to != nil {
		filter = append(filter, fmt.Sprintf("%s <= %d", search.FieldYear, *to))
	}
	if p.Filters.OpenAccessOnly {
		filter = append(filter, search.FieldHasPDF+" = true")
	}
	return filter
}

// Sort renders sort clauses. Relevance is Meilisearch's default ranking, so
// the relevance clause is dropped and only the tiebreaker is sent.
func Sort(key domain.SortKey) []string {
	var out []string
	for _, c := range search.SortClauses(key) {
		if c.Field == search.FieldRelevance {
			continue
		}
		dir := "asc"
		if c.Desc {
			dir = "desc"
		}
		out = append(out, c.Field+":"+dir)
	}
	return out
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
