package activities

import (
	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/temporal"
)

// FetchSourceInput is the input of FetchSource.
type FetchSourceInput struct {
	Source domain.Source `json:"source"`

	// QueryIndex is the position of Query in the harvest input, echoed back
	// so the workflow can attribute failures.
	QueryIndex int                   `json:"queryIndex"`
	Query      temporal.HarvestQuery `json:"query"`
	Limit      int                   `json:"limit"`
}

// FetchSourceOutput carries the records one connector returned for one query.
// A connector failure is reported in Error; the activity itself succeeds.
type FetchSourceOutput struct {
	Source     domain.Source     `json:"source"`
	QueryIndex int               `json:"queryIndex"`
	Records    []domain.OARecord `json:"records"`

	// Dropped counts records that failed validation after normalization.
	Dropped int    `json:"dropped"`
	Error   string `json:"error,omitempty"`
}

// IndexRecordsInput is one batch written by IndexRecords.
type IndexRecordsInput struct {
	Index   string            `json:"index"`
	Records []domain.OARecord `json:"records"`
}

// IndexRecordsOutput reports how many records the batch wrote.
type IndexRecordsOutput struct {
	Indexed int `json:"indexed"`
}

// PublishIndexedInput is the batch announced by PublishIndexed.
type PublishIndexedInput struct {
	Index   string            `json:"index"`
	Records []domain.OARecord `json:"records"`
}
