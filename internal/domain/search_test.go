package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParams_WithDefaults(t *testing.T) {
	p := SearchParams{Q: "  machine   learning "}.WithDefaults()

	assert.Equal(t, "machine learning", p.Q)
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, SortRelevance, p.Sort)
	assert.Equal(t, 0, p.Offset())

	p.Page = 3
	assert.Equal(t, 40, p.Offset())
}

func TestSearchParams_Validate(t *testing.T) {
	base := SearchParams{Q: "x"}.WithDefaults()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(p *SearchParams)
		field  string
	}{
		{name: "page zero after defaults", mutate: func(p *SearchParams) { p.Page = -1 }, field: "page"},
		{name: "page size too large", mutate: func(p *SearchParams) { p.PageSize = 101 }, field: "pageSize"},
		{name: "page size negative", mutate: func(p *SearchParams) { p.PageSize = -5 }, field: "pageSize"},
		{name: "unknown sort", mutate: func(p *SearchParams) { p.Sort = "popularity" }, field: "sort"},
		{name: "unknown source filter", mutate: func(p *SearchParams) { p.Filters.Source = []Source{"scopus"} }, field: "source[0]"},
		{name: "unknown oa status", mutate: func(p *SearchParams) { p.Filters.OAStatus = []OAStatus{"gold"} }, field: "oaStatus[0]"},
		{name: "empty venue value", mutate: func(p *SearchParams) { p.Filters.Venue = []string{""} }, field: "venue[0]"},
		{name: "year range inverted", mutate: func(p *SearchParams) {
			p.Filters.YearFrom = IntPtr(2022)
			p.Filters.YearTo = IntPtr(2020)
		}, field: "yearFrom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSearchParams_Validate_AllSortKeys(t *testing.T) {
	keys := []SortKey{
		SortRelevance, SortDate, SortDateAsc, SortCitations, SortCitationsAsc,
		SortAuthor, SortAuthorDesc, SortVenue, SortVenueDesc, SortTitle, SortTitleDesc,
	}
	for _, k := range keys {
		p := SearchParams{Sort: k}.WithDefaults()
		assert.NoError(t, p.Validate(), k)
	}
}

func TestFilters_IsEmpty(t *testing.T) {
	assert.True(t, Filters{}.IsEmpty())
	assert.False(t, Filters{OpenAccessOnly: true}.IsEmpty())
	assert.False(t, Filters{YearTo: IntPtr(2020)}.IsEmpty())
}

func TestNewSearchResponse(t *testing.T) {
	resp := NewSearchResponse(SearchParams{Page: 2, PageSize: 10})
	assert.NotNil(t, resp.Hits)
	assert.NotNil(t, resp.Facets)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 10, resp.PageSize)
}

func TestBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBackendError("typesense", "search", cause)

	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "typesense search failed: connection refused", err.Error())
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("record", "arxiv:1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "record not found: arxiv:1", err.Error())
}
