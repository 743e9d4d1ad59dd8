package papersources

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// DefaultPerSourceTimeout bounds each connector call during fan-out.
const DefaultPerSourceTimeout = 15 * time.Second

// SourceResult holds the outcome of one connector during a fan-out.
// Records is never nil; Err is kept for reporting only.
type SourceResult struct {
	Source   domain.Source
	Records  []domain.OARecord
	Err      error
	Duration time.Duration
}

// Registry manages connectors and coordinates concurrent searches.
// Connectors are kept in registration order, which is also the merge order.
type Registry struct {
	mu         sync.RWMutex
	connectors map[domain.Source]Connector
	order      []domain.Source

	timeout time.Duration
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewRegistry creates an empty registry. A zero timeout uses DefaultPerSourceTimeout.
func NewRegistry(logger zerolog.Logger, metrics *observability.Metrics, perSourceTimeout time.Duration) *Registry {
	if perSourceTimeout <= 0 {
		perSourceTimeout = DefaultPerSourceTimeout
	}
	return &Registry{
		connectors: make(map[domain.Source]Connector),
		timeout:    perSourceTimeout,
		logger:     observability.WithComponent(logger, "registry"),
		metrics:    metrics,
	}
}

// Register adds a connector. Registering a source twice replaces the connector
// but keeps its original position.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[c.Source()]; !exists {
		r.order = append(r.order, c.Source())
	}
	r.connectors[c.Source()] = c
}

// Get returns the connector for source, or nil if none is registered.
func (r *Registry) Get(source domain.Source) Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connectors[source]
}

// All returns every registered connector in registration order.
func (r *Registry) All() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connector, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.connectors[s])
	}
	return out
}

// Enabled returns the enabled connectors in registration order.
func (r *Registry) Enabled() []Connector {
	all := r.All()
	out := make([]Connector, 0, len(all))
	for _, c := range all {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

// SearchAll runs q against the given sources concurrently, or against every
// enabled connector when sources is empty. Unknown or disabled sources are skipped.
//
// Each connector call is bounded by the per-source timeout. A failing or slow
// connector produces an empty SourceResult; it never fails the fan-out. Results
// are returned in registration order regardless of completion order.
func (r *Registry) SearchAll(ctx context.Context, q Query, sources []domain.Source) []SourceResult {
	connectors := r.selectConnectors(sources)
	if len(connectors) == 0 {
		return []SourceResult{}
	}

	results := make([]SourceResult, len(connectors))
	var wg sync.WaitGroup
	for i, c := range connectors {
		wg.Add(1)
		go func(i int, c Connector) {
			defer wg.Done()
			results[i] = r.searchOne(ctx, c, q)
		}(i, c)
	}
	wg.Wait()

	return results
}

// Merge concatenates the records of results in order.
func Merge(results []SourceResult) []domain.OARecord {
	n := 0
	for _, res := range results {
		n += len(res.Records)
	}
	out := make([]domain.OARecord, 0, n)
	for _, res := range results {
		out = append(out, res.Records...)
	}
	return out
}

func (r *Registry) selectConnectors(sources []domain.Source) []Connector {
	enabled := r.Enabled()
	if len(sources) == 0 {
		return enabled
	}

	wanted := make(map[domain.Source]struct{}, len(sources))
	for _, s := range sources {
		wanted[s] = struct{}{}
	}
	out := make([]Connector, 0, len(sources))
	for _, c := range enabled {
		if _, ok := wanted[c.Source()]; ok {
			out = append(out, c)
		}
	}
	return out
}

type searchOutcome struct {
	records []domain.OARecord
	err     error
}

func (r *Registry) searchOne(ctx context.Context, c Connector, q Query) SourceResult {
	source := c.Source()
	logger := observability.WithSourceContext(observability.LoggerFromContext(ctx, r.logger), string(source), q.Keywords())

	start := time.Now()
	r.metrics.RecordSearchStarted(string(source))

	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan searchOutcome, 1)
	go func() {
		records, err := c.Search(sctx, q)
		done <- searchOutcome{records: records, err: err}
	}()

	var out searchOutcome
	select {
	case out = <-done:
	case <-sctx.Done():
		out = searchOutcome{err: sctx.Err()}
	}

	elapsed := time.Since(start)
	if out.err != nil {
		reason := FailureReason(out.err)
		r.metrics.RecordSearchFailed(string(source), reason, elapsed.Seconds())
		logger.Warn().
			Err(out.err).
			Str("reason", reason).
			Dur("duration", elapsed).
			Msg("connector search failed, returning no records")
		return SourceResult{Source: source, Records: []domain.OARecord{}, Err: out.err, Duration: elapsed}
	}

	records := out.records
	if records == nil {
		records = []domain.OARecord{}
	}
	r.metrics.RecordSearchCompleted(string(source), len(records), elapsed.Seconds())
	logger.Debug().
		Int("records", len(records)).
		Dur("duration", elapsed).
		Msg("connector search completed")

	return SourceResult{Source: source, Records: records, Duration: elapsed}
}

// FailureReason classifies a connector error for metrics and reports.
func FailureReason(err error) string {
	var apiErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 429 {
			return "rate_limited"
		}
		return "upstream_status"
	default:
		return "error"
	}
}
