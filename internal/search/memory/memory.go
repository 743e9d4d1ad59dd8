// Package memory implements an in-process search backend for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/search"
)

// Name is the backend kind.
const Name = "memory"

// Adapter keeps records in a map guarded by a RWMutex. It is safe for concurrent use.
type Adapter struct {
	mu      sync.RWMutex
	records map[string]domain.OARecord
}

var _ search.Adapter = (*Adapter)(nil)

// New creates an empty memory backend.
func New() *Adapter {
	return &Adapter{records: make(map[string]domain.OARecord)}
}

// Name returns "memory".
func (a *Adapter) Name() string {
	return Name
}

// EnsureIndex is a no-op.
func (a *Adapter) EnsureIndex(ctx context.Context) error {
	return ctx.Err()
}

// Ping always succeeds unless ctx is done.
func (a *Adapter) Ping(ctx context.Context) error {
	return ctx.Err()
}

// UpsertMany stores records, replacing any with the same id.
func (a *Adapter) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range records {
		r = r.Normalize()
		a.records[r.ID] = r
	}
	return nil
}

// Get returns a copy of the stored record.
func (a *Adapter) Get(ctx context.Context, id string) (*domain.OARecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	rec, ok := a.records[id]
	a.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("record", id)
	}
	return &rec, nil
}

type scored struct {
	rec   domain.OARecord
	score int
}

// Search filters, scores, sorts and pages the stored records. Facets are
// counted over every match before paging.
func (a *Adapter) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := strings.Fields(strings.ToLower(p.Q))
	phrase := strings.ToLower(p.Q)
	filters := search.EqualityFilters(p)

	a.mu.RLock()
	matches := make([]scored, 0, len(a.records))
	for _, r := range a.records {
		if !matchesFilters(r, p.Filters, filters) {
			continue
		}
		score, ok := relevance(r, phrase, terms)
		if !ok {
			continue
		}
		matches = append(matches, scored{rec: r, score: score})
	}
	a.mu.RUnlock()

	clauses := search.SortClauses(p.Sort)
	sort.SliceStable(matches, func(i, j int) bool {
		return less(matches[i], matches[j], clauses)
	})

	resp := domain.NewSearchResponse(p)
	resp.Total = len(matches)
	matched := make([]domain.OARecord, len(matches))
	for i, m := range matches {
		matched[i] = m.rec
	}
	resp.Facets = search.ComputeFacets(matched)

	start := p.Offset()
	if start > len(matches) {
		start = len(matches)
	}
	end := start + p.PageSize
	if end > len(matches) {
		end = len(matches)
	}
	for _, m := range matches[start:end] {
		resp.Hits = append(resp.Hits, m.rec)
	}
	return resp, nil
}

// relevance scores r for the query. An empty query matches everything. Every
// term must appear somewhere in the searchable text.
func relevance(r domain.OARecord, phrase string, terms []string) (int, bool) {
	if len(terms) == 0 {
		return 0, true
	}
	title := strings.ToLower(r.Title)
	authors := strings.ToLower(strings.Join(r.Authors, " "))
	topics := strings.ToLower(strings.Join(r.Topics, " "))
	abstract := strings.ToLower(r.Abstract)
	venue := strings.ToLower(r.Venue)

	score := 0
	if strings.Contains(title, phrase) {
		score += 10
	}
	for _, t := range terms {
		hit := false
		if strings.Contains(title, t) {
			score += 3
			hit = true
		}
		if strings.Contains(authors, t) || strings.Contains(topics, t) {
			score += 2
			hit = true
		}
		if strings.Contains(abstract, t) || strings.Contains(venue, t) {
			score++
			hit = true
		}
		if !hit {
			return 0, false
		}
	}
	return score, true
}

func matchesFilters(r domain.OARecord, f domain.Filters, eq []search.FieldFilter) bool {
	if f.YearFrom != nil || f.YearTo != nil {
		if r.Year == nil {
			return false
		}
		if f.YearFrom != nil && *r.Year < *f.YearFrom {
			return false
		}
		if f.YearTo != nil && *r.Year > *f.YearTo {
			return false
		}
	}
	if f.OpenAccessOnly && !r.HasPDF() {
		return false
	}
	for _, ff := range eq {
		if !anyEqual(fieldValues(r, ff.Field), ff.Values) {
			return false
		}
	}
	return true
}

func fieldValues(r domain.OARecord, field string) []string {
	switch field {
	case search.FieldDOI:
		return []string{r.DOI}
	case search.FieldSource:
		return []string{string(r.Source)}
	case search.FieldOAStatus:
		return []string{string(r.OAStatus)}
	case search.FieldVenue:
		return []string{r.Venue}
	case search.FieldPublisher:
		return []string{r.Publisher}
	case search.FieldTopics:
		return r.Topics
	default:
		return nil
	}
}

func anyEqual(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func less(a, b scored, clauses []search.SortClause) bool {
	for _, c := range clauses {
		cmp := compare(a, b, c.Field)
		if cmp == 0 {
			continue
		}
		if c.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return a.rec.ID < b.rec.ID
}

func compare(a, b scored, field string) int {
	switch field {
	case search.FieldRelevance:
		return a.score - b.score
	case search.FieldYear:
		return year(a.rec) - year(b.rec)
	case search.FieldCreatedAt:
		return a.rec.CreatedAt.Compare(b.rec.CreatedAt)
	case search.FieldFirstAuthor:
		return strings.Compare(search.SortKeyText(a.rec.FirstAuthor()), search.SortKeyText(b.rec.FirstAuthor()))
	case search.FieldVenue:
		return strings.Compare(search.SortKeyText(a.rec.Venue), search.SortKeyText(b.rec.Venue))
	case search.FieldTitleSort:
		return strings.Compare(search.SortKeyText(a.rec.Title), search.SortKeyText(b.rec.Title))
	default:
		return 0
	}
}

func year(r domain.OARecord) int {
	if r.Year == nil {
		return 0
	}
	return *r.Year
}
