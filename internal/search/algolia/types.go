package algolia

import "github.com/helixir/oa-metasearch/internal/search"

// Object is a search.Document keyed by objectID.
type Object struct {
	ObjectID string `json:"objectID"`
	search.Document
}

// Settings is the body of GET and PUT /1/indexes/{i}/settings.
type Settings struct {
	SearchableAttributes  []string `json:"searchableAttributes,omitempty"`
	AttributesForFaceting []string `json:"attributesForFaceting,omitempty"`
	CustomRanking         []string `json:"customRanking,omitempty"`
	Ranking               []string `json:"ranking,omitempty"`
	Replicas              []string `json:"replicas,omitempty"`
	MaxValuesPerFacet     int      `json:"maxValuesPerFacet,omitempty"`
}

// TaskResponse is returned by every write.
type TaskResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs,omitempty"`
}

// TaskStatus is the body of GET /1/indexes/{i}/task/{id}.
type TaskStatus struct {
	Status string `json:"status"`
}

// BatchRequest is the body of POST /1/indexes/{i}/batch.
type BatchRequest struct {
	Requests []BatchOperation `json:"requests"`
}

// BatchOperation is one write in a batch.
type BatchOperation struct {
	Action string `json:"action"`
	Body   Object `json:"body"`
}

// QueryRequest is the body of POST /1/indexes/{i}/query.
type QueryRequest struct {
	Query             string   `json:"query"`
	Page              int      `json:"page"`
	HitsPerPage       int      `json:"hitsPerPage"`
	Facets            []string `json:"facets"`
	FacetFilters      []any    `json:"facetFilters,omitempty"`
	NumericFilters    []string `json:"numericFilters,omitempty"`
	MaxValuesPerFacet int      `json:"maxValuesPerFacet,omitempty"`
}

// QueryResponse is the body returned by POST /1/indexes/{i}/query.
type QueryResponse struct {
	Hits        []Object                  `json:"hits"`
	NbHits      int                       `json:"nbHits"`
	Page        int                       `json:"page"`
	NbPages     int                       `json:"nbPages"`
	HitsPerPage int                       `json:"hitsPerPage"`
	Facets      map[string]map[string]int `json:"facets"`
}
