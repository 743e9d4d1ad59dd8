package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/database"
	"github.com/helixir/oa-metasearch/internal/domain"
)

var columns = []string{
	"id", "doi", "title", "authors", "year", "venue", "publisher", "abstract", "source", "source_id",
	"oa_status", "best_pdf_url", "landing_page", "topics", "language", "citation_count", "created_at", "updated_at",
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Adapter) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, New(mock, "", zerolog.Nop())
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func addRecordRow(rows *pgxmock.Rows, id string, year *int, created time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, "", "Machine learning for protein folding", []string{"Ada Lovelace"}, year, "", "", "",
		"arxiv", id[len("arxiv:"):], "preprint", "https://arxiv.org/pdf/x", "", []string{"ml"}, "en",
		(*int)(nil), created, (*time.Time)(nil),
	)
}

func TestBuildQuery(t *testing.T) {
	p := domain.SearchParams{
		Q:   "protein folding",
		DOI: "https://doi.org/10.1/ABC",
		Filters: domain.Filters{
			Source:         []domain.Source{domain.SourceArXiv, domain.SourceCORE},
			Topics:         []string{"ml"},
			YearFrom:       domain.IntPtr(2020),
			YearTo:         domain.IntPtr(2023),
			OpenAccessOnly: true,
		},
	}.WithDefaults()

	q := BuildQuery(p)
	assert.Equal(t,
		" WHERE search_vector @@ websearch_to_tsquery('english', $1) AND doi = ANY($2) AND source = ANY($3)"+
			" AND topics && $4 AND year >= $5 AND year <= $6 AND has_pdf",
		q.Where)
	assert.Equal(t, []any{"protein folding", []string{"10.1/abc"}, []string{"arxiv", "core"}, []string{"ml"}, 2020, 2023}, q.Args)
	assert.Equal(t, "ts_rank_cd(search_vector, websearch_to_tsquery('english', $1)) DESC, created_at DESC NULLS LAST, id ASC", q.OrderBy)
}

func TestBuildQuery_Empty(t *testing.T) {
	q := BuildQuery(domain.SearchParams{}.WithDefaults())
	assert.Empty(t, q.Where)
	assert.Empty(t, q.Args)
	assert.Equal(t, "created_at DESC NULLS LAST, id ASC", q.OrderBy)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "year ASC NULLS FIRST, created_at DESC NULLS LAST, id ASC", orderBy(domain.SortDateAsc, ""))
	assert.Equal(t, "first_author DESC NULLS LAST, created_at DESC NULLS LAST, id ASC", orderBy(domain.SortAuthorDesc, ""))
	assert.Equal(t, "title_sort ASC NULLS FIRST, created_at DESC NULLS LAST, id ASC", orderBy(domain.SortTitle, ""))
	assert.Equal(t, "created_at DESC NULLS LAST, id ASC", orderBy(domain.SortCitations, ""))
}

func TestAdapter_EnsureIndex(t *testing.T) {
	mock, a := newMock(t)

	mock.ExpectQuery("SELECT to_regclass").WithArgs("oa_records").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	require.NoError(t, a.EnsureIndex(context.Background()))

	mock.ExpectQuery("SELECT to_regclass").WithArgs("oa_records").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	err := a.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run migrations")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_UpsertMany(t *testing.T) {
	mock, a := newMock(t)

	r1 := domain.NewRecord(domain.SourceArXiv, "2301.00001", "First", time.Now())
	r2 := domain.NewRecord(domain.SourceArXiv, "2301.00002", "Second", time.Now())

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(database.LockKey("upsert:oa_records")).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`INSERT INTO "oa_records"`).WithArgs(anyArgs(23)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO "oa_records"`).WithArgs(anyArgs(23)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, a.UpsertMany(context.Background(), []domain.OARecord{r1, r2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_UpsertMany_RollsBack(t *testing.T) {
	mock, a := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`INSERT INTO "oa_records"`).WithArgs(anyArgs(23)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	rec := domain.NewRecord(domain.SourceArXiv, "2301.00001", "First", time.Now())
	err := a.UpsertMany(context.Background(), []domain.OARecord{rec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arxiv:2301.00001")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_UpsertMany_EmptyIsNoop(t *testing.T) {
	mock, a := newMock(t)
	require.NoError(t, a.UpsertMany(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Search(t *testing.T) {
	mock, a := newMock(t)
	created := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	p := domain.SearchParams{Q: "machine learning", Page: 2, PageSize: 1}.WithDefaults()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "oa_records" WHERE search_vector`).
		WithArgs("machine learning").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT id, doi, title`).
		WithArgs("machine learning", 1, 1).
		WillReturnRows(addRecordRow(pgxmock.NewRows(columns), "arxiv:2301.00002", domain.IntPtr(2023), created))
	mock.ExpectQuery(`SELECT 'source' AS field`).
		WithArgs("machine learning").
		WillReturnRows(pgxmock.NewRows([]string{"field", "value", "n"}).
			AddRow("source", "arxiv", 2).
			AddRow("year", "2023", 2).
			AddRow("venue", "", 2).
			AddRow("topics", "ml", 2))

	resp, err := a.Search(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Hits, 1)
	hit := resp.Hits[0]
	assert.Equal(t, "arxiv:2301.00002", hit.ID)
	assert.Equal(t, domain.SourceArXiv, hit.Source)
	assert.Equal(t, domain.OAStatusPreprint, hit.OAStatus)
	assert.Equal(t, 2023, *hit.Year)
	assert.Equal(t, created, hit.CreatedAt)
	assert.Nil(t, hit.UpdatedAt)

	assert.Equal(t, map[string]int{"arxiv": 2}, resp.Facets["source"])
	assert.Equal(t, map[string]int{"ml": 2}, resp.Facets["topics"])
	assert.Empty(t, resp.Facets["venue"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Get(t *testing.T) {
	mock, a := newMock(t)
	created := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT id, doi, title.*WHERE id = \$1`).WithArgs("arxiv:2301.00001").
		WillReturnRows(addRecordRow(pgxmock.NewRows(columns), "arxiv:2301.00001", nil, created))
	rec, err := a.Get(context.Background(), "arxiv:2301.00001")
	require.NoError(t, err)
	assert.Equal(t, "arxiv:2301.00001", rec.ID)
	assert.Nil(t, rec.Year)

	mock.ExpectQuery(`WHERE id = \$1`).WithArgs("arxiv:missing").
		WillReturnRows(pgxmock.NewRows(columns))
	_, err = a.Get(context.Background(), "arxiv:missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
