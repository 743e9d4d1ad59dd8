// Package workflows defines the harvest workflow that pulls records from the
// open-access connectors into a search index.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/oa-metasearch/internal/domain"
	oatemporal "github.com/helixir/oa-metasearch/internal/temporal"
	"github.com/helixir/oa-metasearch/internal/temporal/activities"
)

// Harvest phases reported by the progress query.
const (
	PhaseFetching = "fetching"
	PhaseIndexing = "indexing"
	PhaseDone     = "done"
)

// activityFailed is the SourceError reason for a fetch activity that failed
// after its retries.
const activityFailed = "activity_failed"

// HarvestWorkflow fetches every (query, source) pair, dedupes the records by
// id in query-then-source order and upserts them in batches. A cancel signal
// stops the harvest after the batch in flight.
func HarvestWorkflow(ctx workflow.Context, input oatemporal.HarvestInput) (*oatemporal.HarvestResult, error) {
	logger := workflow.GetLogger(ctx)
	input = input.WithDefaults()
	if err := input.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_input", err)
	}
	start := workflow.Now(ctx)

	progress := &oatemporal.HarvestProgress{
		Status: oatemporal.StatusRunning,
		Phase:  PhaseFetching,
		Errors: []oatemporal.SourceError{},
	}
	if err := workflow.SetQueryHandler(ctx, oatemporal.QueryProgress, func() (*oatemporal.HarvestProgress, error) {
		return progress, nil
	}); err != nil {
		return nil, fmt.Errorf("register progress query: %w", err)
	}

	cancelled := false
	cancelCh := workflow.GetSignalChannel(ctx, oatemporal.SignalCancel)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		var sig oatemporal.CancelSignal
		cancelCh.Receive(gCtx, &sig)
		cancelled = true
		logger.Info("harvest cancel requested", "index", input.Index, "reason", sig.Reason)
	})

	var acts *activities.HarvestActivities

	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{activities.ErrTypeUnknownSource},
		},
	})
	indexCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{activities.ErrTypeInvalidRecord},
		},
	})
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	sources := input.Sources
	if len(sources) == 0 {
		if err := workflow.ExecuteActivity(fetchCtx, acts.ListSources).Get(ctx, &sources); err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
	}

	result := &oatemporal.HarvestResult{
		Index:    input.Index,
		Status:   oatemporal.StatusCompleted,
		BySource: make(map[domain.Source]int),
		Errors:   []oatemporal.SourceError{},
	}

	// Fetch phase. Futures are started and then read in (query, source)
	// order so dedupe keeps the same winner on replay.
	type pending struct {
		source domain.Source
		query  int
		future workflow.Future
	}
	var fetches []pending
	for qi, q := range input.Queries {
		for _, s := range sources {
			f := workflow.ExecuteActivity(fetchCtx, acts.FetchSource, activities.FetchSourceInput{
				Source:     s,
				QueryIndex: qi,
				Query:      q,
				Limit:      input.MaxPerSource,
			})
			fetches = append(fetches, pending{source: s, query: qi, future: f})
		}
	}
	progress.FetchesTotal = len(fetches)

	seen := make(map[string]struct{})
	var unique []domain.OARecord
	for _, p := range fetches {
		var out activities.FetchSourceOutput
		err := p.future.Get(ctx, &out)
		progress.FetchesDone++
		if err != nil {
			logger.Warn("fetch activity failed", "source", p.source, "query", p.query, "error", err)
			progress.Errors = append(progress.Errors, oatemporal.SourceError{Source: p.source, Query: p.query, Reason: activityFailed})
			continue
		}
		if out.Error != "" {
			progress.Errors = append(progress.Errors, oatemporal.SourceError{Source: p.source, Query: p.query, Reason: out.Error})
		}
		progress.RecordsFetched += len(out.Records)
		kept, dupes := DedupeRecords(seen, out.Records)
		result.Duplicates += dupes
		result.BySource[p.source] += len(kept)
		unique = append(unique, kept...)
	}
	result.RecordsFetched = progress.RecordsFetched

	// Index phase.
	progress.Phase = PhaseIndexing
	stopped := false
	for _, batch := range Batches(unique, input.BatchSize) {
		if cancelled {
			stopped = true
			break
		}
		var out activities.IndexRecordsOutput
		if err := workflow.ExecuteActivity(indexCtx, acts.IndexRecords, activities.IndexRecordsInput{
			Index:   input.Index,
			Records: batch,
		}).Get(ctx, &out); err != nil {
			return nil, fmt.Errorf("index batch %d: %w", progress.BatchesIndexed+1, err)
		}
		progress.BatchesIndexed++
		progress.RecordsIndexed += out.Indexed

		if err := workflow.ExecuteActivity(publishCtx, acts.PublishIndexed, activities.PublishIndexedInput{
			Index:   input.Index,
			Records: batch,
		}).Get(ctx, nil); err != nil {
			logger.Warn("index events not published", "index", input.Index, "batch", progress.BatchesIndexed, "error", err)
		}
	}

	if stopped {
		progress.Status = oatemporal.StatusCancelled
	} else {
		progress.Status = oatemporal.StatusCompleted
	}
	progress.Phase = PhaseDone

	result.Status = progress.Status
	result.RecordsIndexed = progress.RecordsIndexed
	result.BatchesIndexed = progress.BatchesIndexed
	result.Errors = progress.Errors
	result.DurationMS = workflow.Now(ctx).Sub(start).Milliseconds()

	logger.Info("harvest finished",
		"index", input.Index,
		"status", result.Status,
		"sources", SortedMapKeys(result.BySource),
		"fetched", result.RecordsFetched,
		"indexed", result.RecordsIndexed,
		"duplicates", result.Duplicates,
		"errors", len(result.Errors),
	)
	return result, nil
}
