package search

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// Instrumented decorates an Adapter with logging, metrics, parameter
// validation and BackendError wrapping.
type Instrumented struct {
	next    Adapter
	index   string
	logger  zerolog.Logger
	metrics *observability.Metrics
}

var _ Adapter = (*Instrumented)(nil)

// Instrument wraps next. index is used for log context only.
func Instrument(next Adapter, index string, logger zerolog.Logger, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{
		next:    next,
		index:   index,
		logger:  observability.WithBackendContext(observability.WithComponent(logger, "search"), next.Name(), index),
		metrics: metrics,
	}
}

// Name returns the wrapped backend name.
func (a *Instrumented) Name() string {
	return a.next.Name()
}

// EnsureIndex creates the index if needed.
func (a *Instrumented) EnsureIndex(ctx context.Context) error {
	start := time.Now()
	err := a.next.EnsureIndex(ctx)
	return a.finish(ctx, "ensure_index", start, err)
}

// UpsertMany writes records after normalizing and validating each one.
func (a *Instrumented) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	if len(records) == 0 {
		return nil
	}
	normalized := make([]domain.OARecord, len(records))
	for i, r := range records {
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			return err
		}
		normalized[i] = r
	}

	start := time.Now()
	err := a.next.UpsertMany(ctx, normalized)
	if err = a.finish(ctx, "upsert", start, err); err != nil {
		return err
	}
	a.metrics.RecordRecordsIndexed(a.next.Name(), len(normalized))
	logger := observability.LoggerFromContext(ctx, a.logger)
	logger.Debug().
		Int("records", len(normalized)).
		Msg("records upserted")
	return nil
}

// Search applies defaults, validates p and runs the query.
func (a *Instrumented) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.next.Search(ctx, p)
	if err = a.finish(ctx, "search", start, err); err != nil {
		return nil, err
	}
	if resp.Hits == nil {
		resp.Hits = []domain.OARecord{}
	}
	if resp.Facets == nil {
		resp.Facets = map[string]map[string]int{}
	}
	resp.Page = p.Page
	resp.PageSize = p.PageSize
	return resp, nil
}

// Get looks up a record by id.
func (a *Instrumented) Get(ctx context.Context, id string) (*domain.OARecord, error) {
	start := time.Now()
	rec, err := a.next.Get(ctx, id)
	if err = a.finish(ctx, "get", start, err); err != nil {
		return nil, err
	}
	return rec, nil
}

// Ping checks connectivity.
func (a *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	return a.finish(ctx, "ping", start, a.next.Ping(ctx))
}

func (a *Instrumented) finish(ctx context.Context, op string, start time.Time, err error) error {
	dur := time.Since(start).Seconds()
	if err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		a.metrics.RecordBackendRequest(a.next.Name(), op, dur, nil)
		return err
	}

	a.metrics.RecordBackendRequest(a.next.Name(), op, dur, err)
	logger := observability.LoggerFromContext(ctx, a.logger)
	logger.Error().
		Err(err).
		Str("operation", op).
		Float64("duration_seconds", dur).
		Msg("search backend request failed")

	var be *domain.BackendError
	if errors.As(err, &be) {
		return err
	}
	return domain.NewBackendError(a.next.Name(), op, err)
}
