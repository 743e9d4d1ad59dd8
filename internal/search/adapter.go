// Package search defines the backend-neutral search adapter contract and the
// helpers shared by every backend implementation.
//
// # Overview
//
// One Adapter is active per process. It owns a single index (a Typesense
// collection, a Meilisearch or Algolia index, a PostgreSQL table or an
// in-process map) holding documents derived from domain.OARecord. Backends
// translate domain.SearchParams into their native query syntax:
//
//   - pagination: SearchParams.Page is 1-based; see SearchParams.Offset
//   - filters: EqualityFilters plus the yearFrom/yearTo range and hasPdf
//   - sort: SortClauses, always ending with createdAt desc
//   - facets: FacetFields, counted per request
//
// # Errors
//
// Backends return raw transport or driver errors. Instrument wraps an adapter
// so failures are logged, counted and returned as *domain.BackendError, while
// domain.ErrNotFound and validation errors pass through unchanged.
package search

import (
	"context"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// Adapter is implemented by every search backend.
type Adapter interface {
	// Name returns the backend kind, e.g. "typesense".
	Name() string

	// EnsureIndex creates the index with the canonical field set if absent.
	// It is a no-op when the index exists.
	EnsureIndex(ctx context.Context) error

	// UpsertMany replaces documents keyed by record id. Empty input is a no-op.
	UpsertMany(ctx context.Context, records []domain.OARecord) error

	// Search runs p against the index. p must have defaults applied.
	Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error)

	// Get returns the stored record with the given id or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.OARecord, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
