package typesense

import "github.com/helixir/oa-metasearch/internal/search"

// Field is one collection schema field.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Facet    bool   `json:"facet,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Sort     bool   `json:"sort,omitempty"`
	Index    *bool  `json:"index,omitempty"`
}

// CollectionSchema is the body of POST /collections.
type CollectionSchema struct {
	Name                string  `json:"name"`
	Fields              []Field `json:"fields"`
	DefaultSortingField string  `json:"default_sorting_field,omitempty"`
}

// ImportResult is one JSONL line of the import response.
type ImportResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Document string `json:"document,omitempty"`
}

// SearchResult is the body of GET /collections/{c}/documents/search.
type SearchResult struct {
	Found       int          `json:"found"`
	Page        int          `json:"page"`
	Hits        []Hit        `json:"hits"`
	FacetCounts []FacetCount `json:"facet_counts"`
}

// Hit is one search hit.
type Hit struct {
	Document search.Document `json:"document"`
}

// FacetCount holds the value counts of one facet field.
type FacetCount struct {
	FieldName string       `json:"field_name"`
	Counts    []FacetValue `json:"counts"`
}

// FacetValue is one facet value and its count.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}
