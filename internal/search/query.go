package search

import (
	"strconv"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// Indexed field names shared by all backends.
const (
	FieldID          = "id"
	FieldDOI         = "doi"
	FieldTitle       = "title"
	FieldTitleSort   = "titleSort"
	FieldAuthors     = "authors"
	FieldFirstAuthor = "firstAuthor"
	FieldYear        = "year"
	FieldVenue       = "venue"
	FieldPublisher   = "publisher"
	FieldAbstract    = "abstract"
	FieldSource      = "source"
	FieldOAStatus    = "oaStatus"
	FieldHasPDF      = "hasPdf"
	FieldTopics      = "topics"
	FieldCreatedAt   = "createdAt"

	// FieldRelevance stands for the engine's own text relevance score.
	FieldRelevance = "_relevance"
)

// FacetFields are the facets returned with every search, in response order.
var FacetFields = []string{FieldSource, FieldYear, FieldVenue, FieldTopics, FieldOAStatus, FieldPublisher}

// SearchableFields are matched by free-text queries, highest weight first.
var SearchableFields = []string{FieldTitle, FieldAuthors, FieldAbstract, FieldTopics, FieldVenue}

// SortClause is one ordering key.
type SortClause struct {
	Field string
	Desc  bool
}

var tiebreak = SortClause{Field: FieldCreatedAt, Desc: true}

// SortClauses maps a sort key to its ordered clauses. Every list ends with
// createdAt desc. citationCount is never populated, so the citations keys
// order by the tiebreaker alone.
func SortClauses(key domain.SortKey) []SortClause {
	switch key {
	case domain.SortDate:
		return []SortClause{{Field: FieldYear, Desc: true}, tiebreak}
	case domain.SortDateAsc:
		return []SortClause{{Field: FieldYear}, tiebreak}
	case domain.SortCitations, domain.SortCitationsAsc:
		return []SortClause{tiebreak}
	case domain.SortAuthor:
		return []SortClause{{Field: FieldFirstAuthor}, tiebreak}
	case domain.SortAuthorDesc:
		return []SortClause{{Field: FieldFirstAuthor, Desc: true}, tiebreak}
	case domain.SortVenue:
		return []SortClause{{Field: FieldVenue}, tiebreak}
	case domain.SortVenueDesc:
		return []SortClause{{Field: FieldVenue, Desc: true}, tiebreak}
	case domain.SortTitle:
		return []SortClause{{Field: FieldTitleSort}, tiebreak}
	case domain.SortTitleDesc:
		return []SortClause{{Field: FieldTitleSort, Desc: true}, tiebreak}
	default:
		return []SortClause{{Field: FieldRelevance, Desc: true}, tiebreak}
	}
}

// FieldFilter restricts Field to any of Values.
type FieldFilter struct {
	Field  string
	Values []string
}

// EqualityFilters lists the OR-within, AND-across clauses of p in a fixed order:
// doi, source, oaStatus, venue, publisher, topics. Empty lists are omitted.
// The year range and hasPdf are read from p.Filters directly.
func EqualityFilters(p domain.SearchParams) []FieldFilter {
	var out []FieldFilter
	add := func(field string, values []string) {
		if len(values) > 0 {
			out = append(out, FieldFilter{Field: field, Values: values})
		}
	}
	if doi := domain.NormalizeDOI(p.DOI); doi != "" {
		add(FieldDOI, []string{doi})
	}
	f := p.Filters
	sources := make([]string, len(f.Source))
	for i, s := range f.Source {
		sources[i] = string(s)
	}
	add(FieldSource, sources)
	statuses := make([]string, len(f.OAStatus))
	for i, s := range f.OAStatus {
		statuses[i] = string(s)
	}
	add(FieldOAStatus, statuses)
	add(FieldVenue, f.Venue)
	add(FieldPublisher, f.Publisher)
	add(FieldTopics, f.Topics)
	return out
}

// YearRange returns the inclusive year bounds of f for backends that store an
// unknown year as 0. The lower bound defaults to 1 when only an upper bound is
// set, so undated records never satisfy a year filter.
func YearRange(f domain.Filters) (from *int, to *int) {
	if f.YearFrom == nil && f.YearTo == nil {
		return nil, nil
	}
	from = f.YearFrom
	if from == nil {
		from = domain.IntPtr(1)
	}
	return from, f.YearTo
}

// FacetCounts accumulates facet value counts.
type FacetCounts map[string]map[string]int

// NewFacetCounts returns counts with an empty bucket per facet field.
func NewFacetCounts() FacetCounts {
	fc := make(FacetCounts, len(FacetFields))
	for _, f := range FacetFields {
		fc[f] = map[string]int{}
	}
	return fc
}

// Add counts one record.
func (fc FacetCounts) Add(r domain.OARecord) {
	inc := func(field, value string) {
		if value != "" {
			fc[field][value]++
		}
	}
	inc(FieldSource, string(r.Source))
	if r.Year != nil {
		inc(FieldYear, strconv.Itoa(*r.Year))
	}
	inc(FieldVenue, r.Venue)
	inc(FieldOAStatus, string(r.OAStatus))
	inc(FieldPublisher, r.Publisher)
	for _, t := range r.Topics {
		inc(FieldTopics, t)
	}
}

// ComputeFacets counts facet values across records.
func ComputeFacets(records []domain.OARecord) map[string]map[string]int {
	fc := NewFacetCounts()
	for _, r := range records {
		fc.Add(r)
	}
	return fc
}
