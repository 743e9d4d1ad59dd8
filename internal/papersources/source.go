// Package papersources defines the connector contract for open-access repositories
// and the registry that fans a query out to every enabled connector.
//
// Each repository (arXiv, NCBI, Europe PMC, DOAJ, ...) lives in its own subpackage
// and maps its vendor response into domain.OARecord:
//
//	c := arxiv.New(arxiv.Config{Enabled: true})
//	records, err := c.Search(ctx, papersources.Query{TitleOrKeywords: "graph neural networks"})
package papersources

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// Query is the generic connector query. At least one of DOI or TitleOrKeywords
// should be set; an empty query returns no records.
type Query struct {
	// DOI looks up a single work by DOI. Resolver prefixes are tolerated.
	DOI string

	// TitleOrKeywords is mapped to the vendor's full-text query syntax.
	TitleOrKeywords string

	// YearFrom and YearTo bound the publication year. Nil means open.
	YearFrom *int
	YearTo   *int

	// Limit caps the number of records requested. Zero uses the connector default.
	Limit int
}

// IsEmpty reports whether the query carries neither a DOI nor keywords.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.DOI) == "" && strings.TrimSpace(q.TitleOrKeywords) == ""
}

// NormalizedDOI returns the DOI in canonical form.
func (q Query) NormalizedDOI() string {
	return domain.NormalizeDOI(q.DOI)
}

// Keywords returns the keyword string with whitespace collapsed.
func (q Query) Keywords() string {
	return domain.CollapseWhitespace(q.TitleOrKeywords)
}

// HasYearRange reports whether either year bound is set.
func (q Query) HasYearRange() bool {
	return q.YearFrom != nil || q.YearTo != nil
}

// YearBounds renders the year range with open ends replaced by open.
func (q Query) YearBounds(open string) (from, to string) {
	from, to = open, open
	if q.YearFrom != nil {
		from = fmt.Sprintf("%d", *q.YearFrom)
	}
	if q.YearTo != nil {
		to = fmt.Sprintf("%d", *q.YearTo)
	}
	return from, to
}

// LimitOr returns q.Limit, or def when the limit is unset or exceeds def.
func (q Query) LimitOr(def int) int {
	if q.Limit <= 0 || q.Limit > def {
		return def
	}
	return q.Limit
}

// Connector is implemented by every repository client.
type Connector interface {
	// Search returns normalized records matching q. Transport and decode failures
	// are returned as errors; the registry degrades them to empty results.
	Search(ctx context.Context, q Query) ([]domain.OARecord, error)

	// Fetch retrieves one record by its native identifier.
	// Returns domain.ErrNotFound if the source has no such record.
	Fetch(ctx context.Context, sourceID string) (*domain.OARecord, error)

	// Source returns the source this connector produces records for.
	Source() domain.Source

	// Name returns a human-readable name used in logs and listings.
	Name() string

	// IsEnabled reports whether the connector takes part in searches.
	IsEnabled() bool
}

// Finalize normalizes records and drops any that fail validation, so a single
// malformed entry never fails a whole response.
func Finalize(records []domain.OARecord) []domain.OARecord {
	out := make([]domain.OARecord, 0, len(records))
	for _, r := range records {
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByDOI keeps only records whose normalized DOI equals doi.
// Vendors sometimes return fuzzy matches for DOI queries.
func FilterByDOI(records []domain.OARecord, doi string) []domain.OARecord {
	doi = domain.NormalizeDOI(doi)
	if doi == "" {
		return records
	}
	out := make([]domain.OARecord, 0, len(records))
	for _, r := range records {
		if domain.NormalizeDOI(r.DOI) == doi {
			out = append(out, r)
		}
	}
	return out
}
