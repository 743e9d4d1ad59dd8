package activities

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/papersources"
	"github.com/helixir/oa-metasearch/internal/temporal"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchAll(ctx context.Context, q papersources.Query, sources []domain.Source) []papersources.SourceResult {
	args := m.Called(ctx, q, sources)
	return args.Get(0).([]papersources.SourceResult)
}

func (m *mockSearcher) Enabled() []papersources.Connector {
	return m.Called().Get(0).([]papersources.Connector)
}

type stubConnector struct {
	papersources.Connector
	source domain.Source
}

func (c stubConnector) Source() domain.Source { return c.source }

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	return m.Called(ctx, records).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishIndexed(ctx context.Context, index string, records []domain.OARecord) error {
	return m.Called(ctx, index, records).Error(0)
}

var testTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func record(source domain.Source, id, title string) domain.OARecord {
	return domain.NewRecord(source, id, title, testTime)
}

func newEnv(t *testing.T, acts *HarvestActivities) *testsuite.TestActivityEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)
	return env
}

func TestListSources(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Enabled").Return([]papersources.Connector{
		stubConnector{source: domain.SourceArXiv},
		stubConnector{source: domain.SourceDOAJ},
	})
	acts := NewHarvestActivities(searcher, nil, "oa_records", nil)
	env := newEnv(t, acts)

	val, err := env.ExecuteActivity(acts.ListSources)
	require.NoError(t, err)
	var sources []domain.Source
	require.NoError(t, val.Get(&sources))
	assert.Equal(t, []domain.Source{domain.SourceArXiv, domain.SourceDOAJ}, sources)
}

func TestFetchSource(t *testing.T) {
	searcher := &mockSearcher{}
	invalid := record(domain.SourceArXiv, "2", "")
	searcher.On("SearchAll", mock.Anything, mock.MatchedBy(func(q papersources.Query) bool {
		return q.TitleOrKeywords == "open science" && q.Limit == 50 && *q.YearFrom == 2020
	}), []domain.Source{domain.SourceArXiv}).Return([]papersources.SourceResult{{
		Source:  domain.SourceArXiv,
		Records: []domain.OARecord{record(domain.SourceArXiv, "1", "  Open   Science "), invalid},
	}})

	acts := NewHarvestActivities(searcher, nil, "oa_records", nil)
	env := newEnv(t, acts)
	val, err := env.ExecuteActivity(acts.FetchSource, FetchSourceInput{
		Source:     domain.SourceArXiv,
		QueryIndex: 2,
		Query:      temporal.HarvestQuery{TitleOrKeywords: "open science", YearFrom: domain.IntPtr(2020)},
		Limit:      50,
	})
	require.NoError(t, err)

	var out FetchSourceOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, domain.SourceArXiv, out.Source)
	assert.Equal(t, 2, out.QueryIndex)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "Open Science", out.Records[0].Title)
	assert.Equal(t, 1, out.Dropped)
	assert.Empty(t, out.Error)
}

func TestFetchSource_ConnectorFailureIsReported(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).Return([]papersources.SourceResult{{
		Source:  domain.SourceNCBI,
		Records: []domain.OARecord{},
		Err:     &domain.ExternalAPIError{StatusCode: http.StatusTooManyRequests},
	}})

	acts := NewHarvestActivities(searcher, nil, "oa_records", nil)
	env := newEnv(t, acts)
	val, err := env.ExecuteActivity(acts.FetchSource, FetchSourceInput{
		Source: domain.SourceNCBI,
		Query:  temporal.HarvestQuery{DOI: "10.1/x"},
	})
	require.NoError(t, err)

	var out FetchSourceOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "rate_limited", out.Error)
	assert.Empty(t, out.Records)
}

func TestFetchSource_DisabledConnector(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).Return([]papersources.SourceResult{})

	acts := NewHarvestActivities(searcher, nil, "oa_records", nil)
	env := newEnv(t, acts)
	val, err := env.ExecuteActivity(acts.FetchSource, FetchSourceInput{
		Source: domain.SourceDOAJ,
		Query:  temporal.HarvestQuery{TitleOrKeywords: "x"},
	})
	require.NoError(t, err)

	var out FetchSourceOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "connector not enabled", out.Error)
}

func TestFetchSource_UnknownSourceIsNonRetryable(t *testing.T) {
	acts := NewHarvestActivities(&mockSearcher{}, nil, "oa_records", nil)
	env := newEnv(t, acts)
	_, err := env.ExecuteActivity(acts.FetchSource, FetchSourceInput{Source: "scopus"})
	require.Error(t, err)

	var appErr *sdktemporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeUnknownSource, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestIndexRecords(t *testing.T) {
	records := []domain.OARecord{record(domain.SourceArXiv, "1", "a"), record(domain.SourceDOAJ, "2", "b")}
	indexer := &mockIndexer{}
	indexer.On("UpsertMany", mock.Anything, records).Return(nil).Once()

	acts := NewHarvestActivities(nil, indexer, "oa_records", nil)
	env := newEnv(t, acts)
	val, err := env.ExecuteActivity(acts.IndexRecords, IndexRecordsInput{Index: "oa_records", Records: records})
	require.NoError(t, err)

	var out IndexRecordsOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, 2, out.Indexed)
	indexer.AssertExpectations(t)
}

func TestIndexRecords_ValidationIsNonRetryable(t *testing.T) {
	indexer := &mockIndexer{}
	indexer.On("UpsertMany", mock.Anything, mock.Anything).Return(domain.NewValidationError("title", "is required"))

	acts := NewHarvestActivities(nil, indexer, "oa_records", nil)
	env := newEnv(t, acts)
	_, err := env.ExecuteActivity(acts.IndexRecords, IndexRecordsInput{
		Index:   "oa_records",
		Records: []domain.OARecord{record(domain.SourceArXiv, "1", "")},
	})
	require.Error(t, err)

	var appErr *sdktemporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeInvalidRecord, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestIndexRecords_BackendErrorIsRetryable(t *testing.T) {
	indexer := &mockIndexer{}
	indexer.On("UpsertMany", mock.Anything, mock.Anything).
		Return(domain.NewBackendError("typesense", "upsert", errors.New("connection refused")))

	acts := NewHarvestActivities(nil, indexer, "oa_records", nil)
	env := newEnv(t, acts)
	_, err := env.ExecuteActivity(acts.IndexRecords, IndexRecordsInput{
		Index:   "oa_records",
		Records: []domain.OARecord{record(domain.SourceArXiv, "1", "a")},
	})
	require.Error(t, err)

	var appErr *sdktemporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.False(t, appErr.NonRetryable())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIndexRecords_WrongIndex(t *testing.T) {
	acts := NewHarvestActivities(nil, &mockIndexer{}, "oa_records", nil)
	env := newEnv(t, acts)
	_, err := env.ExecuteActivity(acts.IndexRecords, IndexRecordsInput{Index: "other"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oa_records")
}

func TestIndexRecords_EmptyBatch(t *testing.T) {
	indexer := &mockIndexer{}
	acts := NewHarvestActivities(nil, indexer, "oa_records", nil)
	env := newEnv(t, acts)

	val, err := env.ExecuteActivity(acts.IndexRecords, IndexRecordsInput{Index: "oa_records"})
	require.NoError(t, err)
	var out IndexRecordsOutput
	require.NoError(t, val.Get(&out))
	assert.Zero(t, out.Indexed)
	indexer.AssertNotCalled(t, "UpsertMany", mock.Anything, mock.Anything)
}

func TestPublishIndexed(t *testing.T) {
	records := []domain.OARecord{record(domain.SourceArXiv, "1", "a")}

	t.Run("publishes", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("PublishIndexed", mock.Anything, "oa_records", records).Return(nil).Once()
		acts := NewHarvestActivities(nil, nil, "oa_records", pub)
		env := newEnv(t, acts)

		_, err := env.ExecuteActivity(acts.PublishIndexed, PublishIndexedInput{Index: "oa_records", Records: records})
		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("propagates failure", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("PublishIndexed", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
		acts := NewHarvestActivities(nil, nil, "oa_records", pub)
		env := newEnv(t, acts)

		_, err := env.ExecuteActivity(acts.PublishIndexed, PublishIndexedInput{Index: "oa_records", Records: records})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		acts := NewHarvestActivities(nil, nil, "oa_records", nil)
		env := newEnv(t, acts)
		_, err := env.ExecuteActivity(acts.PublishIndexed, PublishIndexedInput{Index: "oa_records", Records: records})
		require.NoError(t, err)
	})
}
