package papersources

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// mockConnector is a mock implementation of Connector for testing.
type mockConnector struct {
	source  domain.Source
	enabled bool

	searchFunc func(ctx context.Context, q Query) ([]domain.OARecord, error)
	fetchFunc  func(ctx context.Context, id string) (*domain.OARecord, error)

	searchCalls atomic.Int32
}

func newMockConnector(source domain.Source, enabled bool, titles ...string) *mockConnector {
	m := &mockConnector{source: source, enabled: enabled}
	m.searchFunc = func(ctx context.Context, q Query) ([]domain.OARecord, error) {
		out := make([]domain.OARecord, 0, len(titles))
		for i, title := range titles {
			out = append(out, domain.NewRecord(source, string(rune('a'+i)), title, time.Unix(0, 0)))
		}
		return out, nil
	}
	return m
}

func (m *mockConnector) Search(ctx context.Context, q Query) ([]domain.OARecord, error) {
	m.searchCalls.Add(1)
	return m.searchFunc(ctx, q)
}

func (m *mockConnector) Fetch(ctx context.Context, id string) (*domain.OARecord, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, id)
	}
	return nil, domain.NewNotFoundError("record", domain.RecordID(m.source, id))
}

func (m *mockConnector) Source() domain.Source { return m.source }
func (m *mockConnector) Name() string          { return string(m.source) }
func (m *mockConnector) IsEnabled() bool       { return m.enabled }

func newTestRegistry(timeout time.Duration) *Registry {
	return NewRegistry(zerolog.Nop(), nil, timeout)
}

func titlesOf(records []domain.OARecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := newTestRegistry(0)
	assert.Equal(t, DefaultPerSourceTimeout, r.timeout)

	arxiv := newMockConnector(domain.SourceArXiv, true)
	doaj := newMockConnector(domain.SourceDOAJ, false)
	r.Register(arxiv)
	r.Register(doaj)

	assert.Same(t, arxiv, r.Get(domain.SourceArXiv))
	assert.Nil(t, r.Get(domain.SourceNCBI))
	assert.Len(t, r.All(), 2)
	require.Len(t, r.Enabled(), 1)
	assert.Equal(t, domain.SourceArXiv, r.Enabled()[0].Source())
}

func TestRegistry_RegisterReplaceKeepsOrder(t *testing.T) {
	r := newTestRegistry(0)
	r.Register(newMockConnector(domain.SourceArXiv, true))
	r.Register(newMockConnector(domain.SourceNCBI, true))

	replacement := newMockConnector(domain.SourceArXiv, true)
	r.Register(replacement)

	all := r.All()
	require.Len(t, all, 2)
	assert.Same(t, replacement, all[0])
	assert.Equal(t, domain.SourceNCBI, all[1].Source())
}

func TestRegistry_SearchAll_MergeOrder(t *testing.T) {
	r := newTestRegistry(time.Second)

	slow := newMockConnector(domain.SourceArXiv, true, "a1", "a2")
	inner := slow.searchFunc
	slow.searchFunc = func(ctx context.Context, q Query) ([]domain.OARecord, error) {
		time.Sleep(30 * time.Millisecond)
		return inner(ctx, q)
	}
	r.Register(slow)
	r.Register(newMockConnector(domain.SourceEuropePMC, true, "e1"))
	r.Register(newMockConnector(domain.SourceDOAJ, true, "d1", "d2"))

	results := r.SearchAll(context.Background(), Query{TitleOrKeywords: "x"}, nil)
	require.Len(t, results, 3)
	assert.Equal(t, domain.SourceArXiv, results[0].Source)
	assert.Equal(t, domain.SourceEuropePMC, results[1].Source)
	assert.Equal(t, domain.SourceDOAJ, results[2].Source)

	assert.Equal(t, []string{"a1", "a2", "e1", "d1", "d2"}, titlesOf(Merge(results)))
}

func TestRegistry_SearchAll_FailureDegradesToEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(zerolog.SyncWriter(&buf))
	metrics := observability.NewMetrics("registry_failure_test")
	r := NewRegistry(logger, metrics, time.Second)

	failing := newMockConnector(domain.SourceNCBI, true)
	failing.searchFunc = func(ctx context.Context, q Query) ([]domain.OARecord, error) {
		return nil, domain.NewExternalAPIError("ncbi", 500, "boom", nil)
	}
	r.Register(failing)
	r.Register(newMockConnector(domain.SourceArXiv, true, "ok"))

	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	results := r.SearchAll(ctx, Query{TitleOrKeywords: "x"}, nil)

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NotNil(t, results[0].Records)
	assert.Empty(t, results[0].Records)
	assert.Equal(t, []string{"ok"}, titlesOf(Merge(results)))

	assert.Contains(t, buf.String(), "connector search failed")
	assert.Contains(t, buf.String(), "corr-1")
	assert.Contains(t, buf.String(), "upstream_status")
}

func TestRegistry_SearchAll_Timeout(t *testing.T) {
	r := newTestRegistry(30 * time.Millisecond)

	hung := newMockConnector(domain.SourceDOAJ, true)
	release := make(chan struct{})
	defer close(release)
	hung.searchFunc = func(ctx context.Context, q Query) ([]domain.OARecord, error) {
		<-release
		return []domain.OARecord{domain.NewRecord(domain.SourceDOAJ, "late", "late", time.Now())}, nil
	}
	r.Register(hung)
	r.Register(newMockConnector(domain.SourceArXiv, true, "fast"))

	start := time.Now()
	results := r.SearchAll(context.Background(), Query{TitleOrKeywords: "x"}, nil)

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, results, 2)
	assert.True(t, errors.Is(results[0].Err, context.DeadlineExceeded))
	assert.Empty(t, results[0].Records)
	assert.Equal(t, []string{"fast"}, titlesOf(Merge(results)))
}

func TestRegistry_SearchAll_SelectSources(t *testing.T) {
	r := newTestRegistry(time.Second)
	arxiv := newMockConnector(domain.SourceArXiv, true, "a")
	ncbi := newMockConnector(domain.SourceNCBI, true, "n")
	disabled := newMockConnector(domain.SourceDOAJ, false, "d")
	r.Register(arxiv)
	r.Register(ncbi)
	r.Register(disabled)

	results := r.SearchAll(context.Background(), Query{TitleOrKeywords: "x"},
		[]domain.Source{domain.SourceNCBI, domain.SourceDOAJ, domain.SourceCORE})

	require.Len(t, results, 1)
	assert.Equal(t, domain.SourceNCBI, results[0].Source)
	assert.Equal(t, int32(0), arxiv.searchCalls.Load())
	assert.Equal(t, int32(0), disabled.searchCalls.Load())
}

func TestRegistry_SearchAll_NoConnectors(t *testing.T) {
	r := newTestRegistry(time.Second)
	results := r.SearchAll(context.Background(), Query{TitleOrKeywords: "x"}, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "timeout", FailureReason(context.DeadlineExceeded))
	assert.Equal(t, "cancelled", FailureReason(context.Canceled))
	assert.Equal(t, "rate_limited", FailureReason(domain.NewExternalAPIError("x", 429, "", nil)))
	assert.Equal(t, "upstream_status", FailureReason(domain.NewExternalAPIError("x", 503, "", nil)))
	assert.Equal(t, "error", FailureReason(errors.New("parse")))
}
