package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/domain"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func record(source domain.Source, id, title string, year int, age time.Duration) domain.OARecord {
	r := domain.NewRecord(source, id, title, base.Add(-age))
	if year != 0 {
		r.Year = domain.IntPtr(year)
	}
	return r
}

func corpus() []domain.OARecord {
	a := record(domain.SourceArXiv, "2301.00001", "Machine learning for protein folding", 2023, 1*time.Hour)
	a.Authors = []string{"Zed Young"}
	a.BestPDFURL = "https://arxiv.org/pdf/2301.00001"
	a.OAStatus = domain.OAStatusPreprint
	a.Topics = []string{"cs.LG"}

	b := record(domain.SourceCORE, "12345", "Open access publishing models", 2020, 2*time.Hour)
	b.Authors = []string{"Amy Adams"}
	b.Venue = "Learned Publishing"

	c := record(domain.SourceEuropePMC, "67890", "Deep learning in radiology", 2021, 3*time.Hour)
	c.Authors = []string{"Mo Khan"}
	c.DOI = "10.1038/nature12373"
	c.OAStatus = domain.OAStatusPublished
	c.Abstract = "We apply machine vision."

	d := record(domain.SourceNCBI, "999", "Undated survey of methods", 0, 4*time.Hour)
	return []domain.OARecord{a, b, c, d}
}

func seeded(t *testing.T) *Adapter {
	t.Helper()
	a := New()
	require.NoError(t, a.EnsureIndex(context.Background()))
	require.NoError(t, a.UpsertMany(context.Background(), corpus()))
	return a
}

func run(t *testing.T, a *Adapter, p domain.SearchParams) *domain.SearchResponse {
	t.Helper()
	resp, err := a.Search(context.Background(), p.WithDefaults())
	require.NoError(t, err)
	return resp
}

func count(t *testing.T, a *Adapter) int {
	t.Helper()
	return run(t, a, domain.SearchParams{}).Total
}

func ids(resp *domain.SearchResponse) []string {
	out := make([]string, len(resp.Hits))
	for i, h := range resp.Hits {
		out[i] = h.ID
	}
	return out
}

func TestAdapter_RoundTripByTitleSubstring(t *testing.T) {
	a := seeded(t)
	for _, r := range corpus() {
		resp := run(t, a, domain.SearchParams{Q: r.Title[3:15]})
		assert.Contains(t, ids(resp), r.ID, r.Title)
	}
}

func TestAdapter_MachineLearningScenario(t *testing.T) {
	resp := run(t, seeded(t), domain.SearchParams{Q: "machine learning"})
	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, "arxiv:2301.00001", resp.Hits[0].ID)
}

func TestAdapter_UpsertIsIdempotent(t *testing.T) {
	a := seeded(t)
	require.NoError(t, a.UpsertMany(context.Background(), corpus()[:1]))
	assert.Equal(t, 4, count(t, a))

	updated := corpus()[0]
	updated.Title = "Replaced title"
	require.NoError(t, a.UpsertMany(context.Background(), []domain.OARecord{updated}))
	assert.Equal(t, 4, count(t, a))

	got, err := a.Get(context.Background(), updated.ID)
	require.NoError(t, err)
	assert.Equal(t, "Replaced title", got.Title)
	assert.Empty(t, run(t, a, domain.SearchParams{Q: "protein folding"}).Hits)
}

func TestAdapter_UpsertEmptyIsNoop(t *testing.T) {
	a := New()
	require.NoError(t, a.UpsertMany(context.Background(), nil))
	assert.Equal(t, 0, count(t, a))
}

func TestAdapter_Pagination(t *testing.T) {
	a := New()
	records := make([]domain.OARecord, 0, 25)
	for i := 0; i < 25; i++ {
		records = append(records, record(domain.SourceArXiv, fmt.Sprintf("p%02d", i), "paged result", 2022, time.Duration(i)*time.Minute))
	}
	require.NoError(t, a.UpsertMany(context.Background(), records))

	seen := map[string]bool{}
	for page := 1; page <= 4; page++ {
		resp := run(t, a, domain.SearchParams{Q: "paged", Page: page, PageSize: 10})
		assert.LessOrEqual(t, len(resp.Hits), 10)
		assert.Equal(t, 25, resp.Total)
		for _, h := range resp.Hits {
			assert.False(t, seen[h.ID], "duplicate across pages: %s", h.ID)
			seen[h.ID] = true
		}
	}
	assert.Len(t, seen, 25)
	assert.Empty(t, run(t, a, domain.SearchParams{Q: "paged", Page: 9, PageSize: 10}).Hits)
}

func TestAdapter_YearFilter(t *testing.T) {
	resp := run(t, seeded(t), domain.SearchParams{Filters: domain.Filters{
		YearFrom: domain.IntPtr(2020),
		YearTo:   domain.IntPtr(2021),
	}})
	require.NotEmpty(t, resp.Hits)
	for _, h := range resp.Hits {
		require.NotNil(t, h.Year)
		assert.GreaterOrEqual(t, *h.Year, 2020)
		assert.LessOrEqual(t, *h.Year, 2021)
	}
	assert.ElementsMatch(t, []string{"core:12345", "europepmc:67890"}, ids(resp))
}

func TestAdapter_Filters(t *testing.T) {
	a := seeded(t)

	assert.Equal(t, []string{"arxiv:2301.00001"},
		ids(run(t, a, domain.SearchParams{Filters: domain.Filters{OpenAccessOnly: true}})))
	assert.Equal(t, []string{"europepmc:67890"},
		ids(run(t, a, domain.SearchParams{DOI: "https://doi.org/10.1038/NATURE12373"})))
	assert.ElementsMatch(t, []string{"arxiv:2301.00001", "ncbi:999"},
		ids(run(t, a, domain.SearchParams{Filters: domain.Filters{Source: []domain.Source{domain.SourceArXiv, domain.SourceNCBI}}})))
	assert.Equal(t, []string{"core:12345"},
		ids(run(t, a, domain.SearchParams{Filters: domain.Filters{Venue: []string{"Learned Publishing"}}})))
	assert.Empty(t, run(t, a, domain.SearchParams{Filters: domain.Filters{
		Source:   []domain.Source{domain.SourceArXiv},
		OAStatus: []domain.OAStatus{domain.OAStatusPublished},
	}}).Hits)
}

func TestAdapter_Sort(t *testing.T) {
	a := seeded(t)
	byCreated := []string{"arxiv:2301.00001", "core:12345", "europepmc:67890", "ncbi:999"}

	assert.Equal(t, byCreated, ids(run(t, a, domain.SearchParams{Sort: domain.SortRelevance})))
	assert.Equal(t, byCreated, ids(run(t, a, domain.SearchParams{Sort: domain.SortCitations})))
	assert.Equal(t, byCreated, ids(run(t, a, domain.SearchParams{Sort: domain.SortCitationsAsc})))
	assert.Equal(t, []string{"arxiv:2301.00001", "europepmc:67890", "core:12345", "ncbi:999"},
		ids(run(t, a, domain.SearchParams{Sort: domain.SortDate})))
	assert.Equal(t, []string{"ncbi:999", "core:12345", "europepmc:67890", "arxiv:2301.00001"},
		ids(run(t, a, domain.SearchParams{Sort: domain.SortDateAsc})))
	assert.Equal(t, []string{"ncbi:999", "core:12345", "europepmc:67890", "arxiv:2301.00001"},
		ids(run(t, a, domain.SearchParams{Sort: domain.SortAuthor})))
	assert.Equal(t, []string{"ncbi:999", "core:12345", "arxiv:2301.00001", "europepmc:67890"},
		ids(run(t, a, domain.SearchParams{Sort: domain.SortTitleDesc})))
}

func TestAdapter_Facets(t *testing.T) {
	resp := run(t, seeded(t), domain.SearchParams{Q: "learning", PageSize: 1})
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Hits, 1)
	assert.Equal(t, map[string]int{"arxiv": 1, "europepmc": 1}, resp.Facets["source"])
	assert.Equal(t, map[string]int{"2023": 1, "2021": 1}, resp.Facets["year"])
}

func TestAdapter_Get(t *testing.T) {
	a := seeded(t)
	rec, err := a.Get(context.Background(), "core:12345")
	require.NoError(t, err)
	assert.Equal(t, "Open access publishing models", rec.Title)

	_, err = a.Get(context.Background(), "core:missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdapter_ConcurrentAccess(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = a.UpsertMany(context.Background(), []domain.OARecord{record(domain.SourceArXiv, fmt.Sprint(i), "concurrent", 2020, 0)})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = a.Search(context.Background(), domain.SearchParams{Q: "concurrent"}.WithDefaults())
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, count(t, a))
}

func TestAdapter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Search(ctx, domain.SearchParams{}.WithDefaults())
	assert.ErrorIs(t, err, context.Canceled)
}
