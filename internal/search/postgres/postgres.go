// Package postgres implements the search adapter over a PostgreSQL table with
// a generated tsvector column. The table is created by the embedded
// migrations in internal/database.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/database"
	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/search"
)

// Name is the backend kind.
const Name = "postgres"

// DefaultTable is the table created by the migrations.
const DefaultTable = "oa_records"

// textSearchConfig is the configuration the generated search_vector uses.
const textSearchConfig = "english"

const selectColumns = `id, doi, title, authors, year, venue, publisher, abstract, source, source_id,
	oa_status, best_pdf_url, landing_page, topics, language, citation_count, created_at, updated_at`

// Adapter implements search.Adapter over one table.
type Adapter struct {
	pool   database.Pool
	table  string
	ident  string
	logger zerolog.Logger
}

var _ search.Adapter = (*Adapter)(nil)

// New creates an adapter over table, or DefaultTable when empty.
func New(pool database.Pool, table string, logger zerolog.Logger) *Adapter {
	if table == "" {
		table = DefaultTable
	}
	return &Adapter{
		pool:   pool,
		table:  table,
		ident:  pgx.Identifier{table}.Sanitize(),
		logger: logger,
	}
}

// Name returns "postgres".
func (a *Adapter) Name() string {
	return Name
}

// EnsureIndex checks that the migrated table exists. Schema changes are
// applied by migrations, never by the adapter.
func (a *Adapter) EnsureIndex(ctx context.Context) error {
	var exists bool
	if err := a.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", a.table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check table %s: %w", a.table, err)
	}
	if !exists {
		return fmt.Errorf("table %s does not exist: run migrations first", a.table)
	}
	return nil
}

// UpsertMany replaces rows by id in one transaction. Writers to the same
// table are serialized by a transaction-scoped advisory lock.
func (a *Adapter) UpsertMany(ctx context.Context, records []domain.OARecord) error {
	if len(records) == 0 {
		return nil
	}
	query := a.upsertSQL()
	return database.InTx(ctx, a.pool, a.logger, func(tx pgx.Tx) error {
		if err := database.AcquireAdvisoryLockTx(ctx, tx, database.LockKey("upsert:"+a.table)); err != nil {
			return fmt.Errorf("failed to lock %s: %w", a.table, err)
		}
		for _, r := range records {
			if _, err := tx.Exec(ctx, query, upsertArgs(r.Normalize())...); err != nil {
				return fmt.Errorf("failed to upsert %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

func (a *Adapter) upsertSQL() string {
	return `INSERT INTO ` + a.ident + ` (
		id, doi, title, title_sort, authors, authors_text, first_author, year, venue, publisher,
		abstract, source, source_id, oa_status, best_pdf_url, has_pdf, landing_page, topics,
		topics_text, language, citation_count, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
	)
	ON CONFLICT (id) DO UPDATE SET
		doi = EXCLUDED.doi,
		title = EXCLUDED.title,
		title_sort = EXCLUDED.title_sort,
		authors = EXCLUDED.authors,
		authors_text = EXCLUDED.authors_text,
		first_author = EXCLUDED.first_author,
		year = EXCLUDED.year,
		venue = EXCLUDED.venue,
		publisher = EXCLUDED.publisher,
		abstract = EXCLUDED.abstract,
		oa_status = EXCLUDED.oa_status,
		best_pdf_url = EXCLUDED.best_pdf_url,
		has_pdf = EXCLUDED.has_pdf,
		landing_page = EXCLUDED.landing_page,
		topics = EXCLUDED.topics,
		topics_text = EXCLUDED.topics_text,
		language = EXCLUDED.language,
		citation_count = EXCLUDED.citation_count,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at,
		indexed_at = NOW()`
}

func upsertArgs(r domain.OARecord) []any {
	var updatedAt *time.Time
	if r.UpdatedAt != nil {
		t := r.UpdatedAt.UTC()
		updatedAt = &t
	}
	return []any{
		r.ID, r.DOI, r.Title, search.SortKeyText(r.Title), r.Authors, strings.Join(r.Authors, " "),
		search.SortKeyText(r.FirstAuthor()), r.Year, r.Venue, r.Publisher,
		r.Abstract, string(r.Source), r.SourceID, string(r.OAStatus), r.BestPDFURL, r.HasPDF(), r.LandingPage, r.Topics,
		strings.Join(r.Topics, " "), r.Language, r.CitationCount, r.CreatedAt.UTC(), updatedAt,
	}
}

// Search runs a count, a page query and one grouped facet query over the same predicate.
func (a *Adapter) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error) {
	q := BuildQuery(p)
	resp := domain.NewSearchResponse(p)

	if err := a.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+a.ident+q.Where, q.Args...).Scan(&resp.Total); err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}

	pageArgs := append(append([]any{}, q.Args...), p.PageSize, p.Offset())
	n := len(q.Args)
	pageSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectColumns, a.ident, q.Where, q.OrderBy, n+1, n+2)
	rows, err := a.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	hits, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	resp.Hits = hits

	facets, err := a.facets(ctx, q)
	if err != nil {
		return nil, err
	}
	resp.Facets = facets
	return resp, nil
}

func (a *Adapter) facets(ctx context.Context, q Query) (map[string]map[string]int, error) {
	rows, err := a.pool.Query(ctx, a.facetSQL(q.Where), q.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query facets: %w", err)
	}
	defer rows.Close()

	fc := search.NewFacetCounts()
	for rows.Next() {
		var field, value string
		var count int
		if err := rows.Scan(&field, &value, &count); err != nil {
			return nil, fmt.Errorf("failed to scan facet: %w", err)
		}
		if bucket, ok := fc[field]; ok && value != "" {
			bucket[value] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read facets: %w", err)
	}
	return fc, nil
}

// facetColumns maps facet fields to the SQL expression producing their values.
var facetColumns = []struct {
	field string
	expr  string
}{
	{search.FieldSource, "source"},
	{search.FieldYear, "year::text"},
	{search.FieldVenue, "venue"},
	{search.FieldTopics, "unnest(topics)"},
	{search.FieldOAStatus, "oa_status"},
	{search.FieldPublisher, "publisher"},
}

func (a *Adapter) facetSQL(where string) string {
	parts := make([]string, len(facetColumns))
	for i, c := range facetColumns {
		parts[i] = fmt.Sprintf("SELECT '%s' AS field, v AS value, COUNT(*) AS n FROM (SELECT %s AS v FROM %s%s) f WHERE v IS NOT NULL GROUP BY v",
			c.field, c.expr, a.ident, where)
	}
	return strings.Join(parts, " UNION ALL ")
}

// Get fetches a row by record id.
func (a *Adapter) Get(ctx context.Context, id string) (*domain.OARecord, error) {
	rows, err := a.pool.Query(ctx, "SELECT "+selectColumns+" FROM "+a.ident+" WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.NewNotFoundError("record", id)
	}
	return &records[0], nil
}

// Ping checks the connection.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func collectRecords(rows pgx.Rows) ([]domain.OARecord, error) {
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	if records == nil {
		records = []domain.OARecord{}
	}
	return records, nil
}

func scanRecord(row pgx.CollectableRow) (domain.OARecord, error) {
	var (
		r                domain.OARecord
		source, oaStatus string
		createdAt        time.Time
		updatedAt        *time.Time
	)
	err := row.Scan(
		&r.ID, &r.DOI, &r.Title, &r.Authors, &r.Year, &r.Venue, &r.Publisher, &r.Abstract,
		&source, &r.SourceID, &oaStatus, &r.BestPDFURL, &r.LandingPage, &r.Topics,
		&r.Language, &r.CitationCount, &createdAt, &updatedAt,
	)
	if err != nil {
		return r, err
	}
	r.Source = domain.Source(source)
	r.OAStatus = domain.OAStatus(oaStatus)
	r.CreatedAt = createdAt.UTC()
	if updatedAt != nil {
		t := updatedAt.UTC()
		r.UpdatedAt = &t
	}
	if r.Authors == nil {
		r.Authors = []string{}
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}
	return r, nil
}

// Query is a compiled predicate and ordering.
type Query struct {
	// Where is empty or starts with " WHERE ".
	Where   string
	OrderBy string
	Args    []any
}

// BuildQuery compiles p into SQL fragments with positional arguments.
func BuildQuery(p domain.SearchParams) Query {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	var tsq string
	if strings.TrimSpace(p.Q) != "" {
		tsq = fmt.Sprintf("websearch_to_tsquery('%s', %s)", textSearchConfig, arg(p.Q))
		conds = append(conds, "search_vector @@ "+tsq)
	}
	for _, f := range search.EqualityFilters(p) {
		col := columnFor(f.Field)
		if f.Field == search.FieldTopics {
			conds = append(conds, col+" && "+arg(f.Values))
			continue
		}
		conds = append(conds, col+" = ANY("+arg(f.Values)+")")
	}
	if p.Filters.YearFrom != nil {
		conds = append(conds, "year >= "+arg(*p.Filters.YearFrom))
	}
	if p.Filters.YearTo != nil {
		conds = append(conds, "year <= "+arg(*p.Filters.YearTo))
	}
	if p.Filters.OpenAccessOnly {
		conds = append(conds, "has_pdf")
	}

	q := Query{Args: args, OrderBy: orderBy(p.Sort, tsq)}
	if len(conds) > 0 {
		q.Where = " WHERE " + strings.Join(conds, " AND ")
	}
	return q
}

func orderBy(key domain.SortKey, tsq string) string {
	var parts []string
	for _, c := range search.SortClauses(key) {
		if c.Field == search.FieldRelevance {
			if tsq != "" {
				parts = append(parts, "ts_rank_cd(search_vector, "+tsq+") DESC")
			}
			continue
		}
		dir := "ASC NULLS FIRST"
		if c.Desc {
			dir = "DESC NULLS LAST"
		}
		parts = append(parts, columnFor(c.Field)+" "+dir)
	}
	return strings.Join(append(parts, "id ASC"), ", ")
}

func columnFor(field string) string {
	switch field {
	case search.FieldTitleSort:
		return "title_sort"
	case search.FieldFirstAuthor:
		return "first_author"
	case search.FieldOAStatus:
		return "oa_status"
	case search.FieldCreatedAt:
		return "created_at"
	case search.FieldHasPDF:
		return "has_pdf"
	default:
		return field
	}
}
