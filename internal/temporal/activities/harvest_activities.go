// Package activities holds the Temporal activities of the harvest workflow.
package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

// Application error types set on non-retryable failures.
const (
	ErrTypeInvalidRecord = "invalid_record"
	ErrTypeUnknownSource = "unknown_source"
)

// SourceSearcher fans a query out to connectors. papersources.Registry
// satisfies it.
type SourceSearcher interface {
	Enabled() []papersources.Connector
	SearchAll(ctx context.Context, q papersources.Query, sources []domain.Source) []papersources.SourceResult
}

// RecordIndexer writes records to a search index. Every search.Adapter
// satisfies it.
type RecordIndexer interface {
	UpsertMany(ctx context.Context, records []domain.OARecord) error
}

// IndexPublisher announces indexed records.
type IndexPublisher interface {
	PublishIndexed(ctx context.Context, index string, records []domain.OARecord) error
}

// HarvestActivities provides the activities registered on the harvest worker.
type HarvestActivities struct {
	sources   SourceSearcher
	index     RecordIndexer
	indexName string
	publisher IndexPublisher
}

// NewHarvestActivities creates the activity set. indexName is the index the
// worker writes to; publisher may be nil.
func NewHarvestActivities(sources SourceSearcher, index RecordIndexer, indexName string, publisher IndexPublisher) *HarvestActivities {
	return &HarvestActivities{
		sources:   sources,
		index:     index,
		indexName: indexName,
		publisher: publisher,
	}
}

// ListSources returns the enabled connectors in registration order.
func (a *HarvestActivities) ListSources(ctx context.Context) ([]domain.Source, error) {
	enabled := a.sources.Enabled()
	out := make([]domain.Source, len(enabled))
	for i, c := range enabled {
		out[i] = c.Source()
	}
	return out, nil
}

// FetchSource runs one query against one connector. Connector failures are
// reported in the output rather than failing the activity, so one slow
// repository does not stall the harvest.
func (a *HarvestActivities) FetchSource(ctx context.Context, input FetchSourceInput) (*FetchSourceOutput, error) {
	logger := activity.GetLogger(ctx)
	if !input.Source.IsValid() {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown source %q", input.Source), ErrTypeUnknownSource, nil)
	}

	q := papersources.Query{
		DOI:             input.Query.DOI,
		TitleOrKeywords: input.Query.TitleOrKeywords,
		YearFrom:        input.Query.YearFrom,
		YearTo:          input.Query.YearTo,
		Limit:           input.Limit,
	}
	out := &FetchSourceOutput{Source: input.Source, QueryIndex: input.QueryIndex, Records: []domain.OARecord{}}

	results := a.sources.SearchAll(workflowContext(ctx), q, []domain.Source{input.Source})
	if len(results) == 0 {
		out.Error = "connector not enabled"
		logger.Warn("connector not enabled", "source", input.Source)
		return out, nil
	}

	res := results[0]
	if res.Err != nil {
		out.Error = papersources.FailureReason(res.Err)
		logger.Warn("connector fetch failed", "source", input.Source, "query", input.QueryIndex, "error", res.Err)
		return out, nil
	}

	for _, r := range res.Records {
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			out.Dropped++
			continue
		}
		out.Records = append(out.Records, r)
	}

	logger.Info("connector fetch completed",
		"source", input.Source,
		"query", input.QueryIndex,
		"records", len(out.Records),
		"dropped", out.Dropped,
		"duration", res.Duration.Seconds(),
	)
	return out, nil
}

// IndexRecords upserts one batch. A record that fails validation fails the
// batch without retry; backend errors are retried by the activity policy.
func (a *HarvestActivities) IndexRecords(ctx context.Context, input IndexRecordsInput) (*IndexRecordsOutput, error) {
	logger := activity.GetLogger(ctx)
	if input.Index != a.indexName {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("worker writes to index %q, not %q", a.indexName, input.Index), "wrong_index", nil)
	}
	if len(input.Records) == 0 {
		return &IndexRecordsOutput{}, nil
	}

	start := time.Now()
	if err := a.index.UpsertMany(workflowContext(ctx), input.Records); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRecord, err)
		}
		logger.Error("index batch failed", "index", input.Index, "records", len(input.Records), "error", err)
		return nil, fmt.Errorf("index %d records: %w", len(input.Records), err)
	}

	logger.Info("index batch written",
		"index", input.Index,
		"records", len(input.Records),
		"duration", time.Since(start).Seconds(),
	)
	return &IndexRecordsOutput{Indexed: len(input.Records)}, nil
}

// PublishIndexed announces a written batch. The workflow treats failures as
// best effort.
func (a *HarvestActivities) PublishIndexed(ctx context.Context, input PublishIndexedInput) error {
	if a.publisher == nil || len(input.Records) == 0 {
		return nil
	}
	if err := a.publisher.PublishIndexed(workflowContext(ctx), input.Index, input.Records); err != nil {
		activity.GetLogger(ctx).Error("failed to publish index events", "index", input.Index, "error", err)
		return fmt.Errorf("publish %d index events: %w", len(input.Records), err)
	}
	return nil
}

// workflowContext tags ctx with the calling workflow execution so connector
// and backend logs carry workflow_id.
func workflowContext(ctx context.Context) context.Context {
	if !activity.IsActivity(ctx) {
		return ctx
	}
	info := activity.GetInfo(ctx)
	return observability.WithWorkflow(ctx, info.WorkflowExecution.ID, info.WorkflowExecution.RunID)
}
