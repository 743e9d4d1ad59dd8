package federation

import (
	"context"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

// SearchRequest is a live query against the connectors.
type SearchRequest struct {
	DOI             string          `json:"doi,omitempty"`
	TitleOrKeywords string          `json:"titleOrKeywords,omitempty"`
	YearFrom        *int            `json:"yearFrom,omitempty"`
	YearTo          *int            `json:"yearTo,omitempty"`
	Sources         []domain.Source `json:"sources,omitempty"`
	Limit           int             `json:"limit,omitempty"`
}

// Query converts the request into a connector query.
func (r SearchRequest) Query() papersources.Query {
	return papersources.Query{
		DOI:             r.DOI,
		TitleOrKeywords: r.TitleOrKeywords,
		YearFrom:        r.YearFrom,
		YearTo:          r.YearTo,
		Limit:           r.Limit,
	}
}

// Validate checks year bounds and source names.
func (r SearchRequest) Validate() error {
	if r.YearFrom != nil && r.YearTo != nil && *r.YearFrom > *r.YearTo {
		return domain.NewValidationError("yearFrom", "must not be after yearTo")
	}
	if r.Limit < 0 || r.Limit > domain.MaxPageSize {
		return domain.NewValidationError("limit", "must be between 0 and 100")
	}
	for _, s := range r.Sources {
		if !s.IsValid() {
			return domain.NewValidationError("sources", "unknown source "+string(s))
		}
	}
	return nil
}

// SourceSummary reports one connector's share of a federated search.
type SourceSummary struct {
	Count      int   `json:"count"`
	DurationMS int64 `json:"durationMs"`
}

// SearchResult is the merged outcome of a federated search. Errors holds the
// failure reason per failed source; failed sources contribute no hits.
type SearchResult struct {
	Hits     []domain.OARecord               `json:"hits"`
	BySource map[domain.Source]SourceSummary `json:"bySource"`
	Errors   map[domain.Source]string        `json:"errors"`
}

// FederatedSearch fans req out to the requested sources, or to every enabled
// connector when none are named, and merges the results in registration
// order. An empty query returns no hits without contacting any connector.
func (s *Service) FederatedSearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out := &SearchResult{
		Hits:     []domain.OARecord{},
		BySource: map[domain.Source]SourceSummary{},
		Errors:   map[domain.Source]string{},
	}
	q := req.Query()
	if q.IsEmpty() || s.sources == nil {
		return out, nil
	}

	results := s.sources.SearchAll(ctx, q, req.Sources)
	for _, res := range results {
		out.BySource[res.Source] = SourceSummary{
			Count:      len(res.Records),
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			out.Errors[res.Source] = papersources.FailureReason(res.Err)
		}
	}
	out.Hits = papersources.Merge(results)
	return out, nil
}
