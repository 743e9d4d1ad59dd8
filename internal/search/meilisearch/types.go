package meilisearch

import "github.com/helixir/oa-metasearch/internal/search"

// Document is a search.Document with the Meilisearch primary key. Record ids
// contain ':' and '.', which Meilisearch rejects in primary keys, so Key holds
// an encoded form of ID.
type Document struct {
	Key string `json:"key"`
	search.Document
}

// Task is the summary returned for every enqueued write.
type Task struct {
	TaskUID  int64  `json:"taskUid"`
	IndexUID string `json:"indexUid"`
	Status   string `json:"status"`
	Type     string `json:"type"`
}

// TaskStatus is the body of GET /tasks/{uid}.
type TaskStatus struct {
	UID    int64      `json:"uid"`
	Status string     `json:"status"`
	Type   string     `json:"type"`
	Error  *APIError  `json:"error,omitempty"`
}

// APIError is the Meilisearch error object.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreateIndexRequest is the body of POST /indexes.
type CreateIndexRequest struct {
	UID        string `json:"uid"`
	PrimaryKey string `json:"primaryKey"`
}

// Settings is the body of PATCH /indexes/{i}/settings.
type Settings struct {
	SearchableAttributes []string `json:"searchableAttributes"`
	FilterableAttributes []string `json:"filterableAttributes"`
	SortableAttributes   []string `json:"sortableAttributes"`
}

// SearchRequest is the body of POST /indexes/{i}/search. Setting page and
// hitsPerPage selects exhaustive pagination, so totalHits is exact.
type SearchRequest struct {
	Q           string   `json:"q"`
	Filter      []any    `json:"filter,omitempty"`
	Sort        []string `json:"sort,omitempty"`
	Facets      []string `json:"facets"`
	Page        int      `json:"page"`
	HitsPerPage int      `json:"hitsPerPage"`
}

// SearchResponse is the body returned by POST /indexes/{i}/search in
// page mode.
type SearchResponse struct {
	Hits              []Document                `json:"hits"`
	Page              int                       `json:"page"`
	HitsPerPage       int                       `json:"hitsPerPage"`
	TotalHits         int                       `json:"totalHits"`
	TotalPages        int                       `json:"totalPages"`
	FacetDistribution map[string]map[string]int `json:"facetDistribution"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
}
