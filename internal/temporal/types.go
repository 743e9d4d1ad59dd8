package temporal

import (
	"fmt"
	"strings"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// Harvest defaults applied by HarvestInput.WithDefaults.
const (
	DefaultHarvestBatchSize    = 100
	DefaultHarvestMaxPerSource = 100
	MaxHarvestBatchSize        = 1000
)

// Harvest run states reported in progress and results.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// HarvestQuery is one connector query of a harvest.
type HarvestQuery struct {
	DOI             string `json:"doi,omitempty"`
	TitleOrKeywords string `json:"titleOrKeywords,omitempty"`
	YearFrom        *int   `json:"yearFrom,omitempty"`
	YearTo          *int   `json:"yearTo,omitempty"`
}

// IsEmpty reports whether the query has neither a DOI nor keywords.
func (q HarvestQuery) IsEmpty() bool {
	return strings.TrimSpace(q.DOI) == "" && strings.TrimSpace(q.TitleOrKeywords) == ""
}

// HarvestInput is the argument of the harvest workflow. It lives here rather
// than in the workflows package so API code can build it without importing
// workflow code.
type HarvestInput struct {
	// Index names the target index and keys the workflow id.
	Index string `json:"index"`

	// Sources restricts the harvest. Empty means every enabled connector.
	Sources []domain.Source `json:"sources,omitempty"`

	Queries []HarvestQuery `json:"queries"`

	// BatchSize is the number of records per UpsertMany call.
	BatchSize int `json:"batchSize,omitempty"`

	// MaxPerSource caps the records requested per query and source.
	MaxPerSource int `json:"maxPerSource,omitempty"`

	// RequestedBy is free text for logs, e.g. "oactl" or "kafka".
	RequestedBy string `json:"requestedBy,omitempty"`
}

// WithDefaults fills zero batch and per-source limits.
func (in HarvestInput) WithDefaults() HarvestInput {
	if in.BatchSize <= 0 {
		in.BatchSize = DefaultHarvestBatchSize
	}
	if in.MaxPerSource <= 0 {
		in.MaxPerSource = DefaultHarvestMaxPerSource
	}
	return in
}

// Validate checks the input before a workflow is started.
func (in HarvestInput) Validate() error {
	if strings.TrimSpace(in.Index) == "" {
		return domain.NewValidationError("index", "is required")
	}
	if len(in.Queries) == 0 {
		return domain.NewValidationError("queries", "at least one query is required")
	}
	for i, q := range in.Queries {
		if q.IsEmpty() {
			return domain.NewValidationError("queries", fmt.Sprintf("query %d has neither doi nor titleOrKeywords", i))
		}
		if q.YearFrom != nil && q.YearTo != nil && *q.YearFrom > *q.YearTo {
			return domain.NewValidationError("queries", fmt.Sprintf("query %d has yearFrom after yearTo", i))
		}
	}
	for _, s := range in.Sources {
		if !s.IsValid() {
			return domain.NewValidationError("sources", fmt.Sprintf("unknown source %q", s))
		}
	}
	if in.BatchSize > MaxHarvestBatchSize {
		return domain.NewValidationError("batchSize", fmt.Sprintf("must not exceed %d", MaxHarvestBatchSize))
	}
	return nil
}

// HarvestWorkflowID returns the workflow id for harvests into index.
func HarvestWorkflowID(index string) string {
	return "harvest-" + index
}

// SourceError records a connector that failed during a harvest.
type SourceError struct {
	Source domain.Source `json:"source"`
	Query  int           `json:"query"`
	Reason string        `json:"reason"`
}

// HarvestProgress is returned by the progress query.
type HarvestProgress struct {
	Status         string        `json:"status"`
	Phase          string        `json:"phase"`
	FetchesDone    int           `json:"fetchesDone"`
	FetchesTotal   int           `json:"fetchesTotal"`
	RecordsFetched int           `json:"recordsFetched"`
	RecordsIndexed int           `json:"recordsIndexed"`
	BatchesIndexed int           `json:"batchesIndexed"`
	Errors         []SourceError `json:"errors"`
}

// HarvestResult is the outcome of a harvest workflow.
type HarvestResult struct {
	Index          string                `json:"index"`
	Status         string                `json:"status"`
	RecordsFetched int                   `json:"recordsFetched"`
	RecordsIndexed int                   `json:"recordsIndexed"`
	Duplicates     int                   `json:"duplicates"`
	BatchesIndexed int                   `json:"batchesIndexed"`
	BySource       map[domain.Source]int `json:"bySource"`
	Errors         []SourceError         `json:"errors"`
	DurationMS     int64                 `json:"durationMs"`
}
