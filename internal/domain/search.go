package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Search defaults and bounds.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SortKey selects the ordering of search hits.
type SortKey string

const (
	SortRelevance    SortKey = "relevance"
	SortDate         SortKey = "date"
	SortDateAsc      SortKey = "date_asc"
	SortCitations    SortKey = "citations"
	SortCitationsAsc SortKey = "citations_asc"
	SortAuthor       SortKey = "author"
	SortAuthorDesc   SortKey = "author_desc"
	SortVenue        SortKey = "venue"
	SortVenueDesc    SortKey = "venue_desc"
	SortTitle        SortKey = "title"
	SortTitleDesc    SortKey = "title_desc"
)

// Filters narrows a search. Empty lists and nil bounds apply no restriction.
type Filters struct {
	Source         []Source   `json:"source,omitempty" validate:"omitempty,dive,oasource"`
	YearFrom       *int       `json:"yearFrom,omitempty" validate:"omitempty,gte=1000,lte=3000"`
	YearTo         *int       `json:"yearTo,omitempty" validate:"omitempty,gte=1000,lte=3000"`
	OAStatus       []OAStatus `json:"oaStatus,omitempty" validate:"omitempty,dive,oastatus"`
	Venue          []string   `json:"venue,omitempty" validate:"omitempty,max=50,dive,required"`
	Publisher      []string   `json:"publisher,omitempty" validate:"omitempty,max=50,dive,required"`
	Topics         []string   `json:"topics,omitempty" validate:"omitempty,max=50,dive,required"`
	OpenAccessOnly bool       `json:"openAccessOnly,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return len(f.Source) == 0 && f.YearFrom == nil && f.YearTo == nil &&
		len(f.OAStatus) == 0 && len(f.Venue) == 0 && len(f.Publisher) == 0 &&
		len(f.Topics) == 0 && !f.OpenAccessOnly
}

// SearchParams is the backend-neutral search request.
type SearchParams struct {
	Q        string  `json:"q" validate:"max=1000"`
	DOI      string  `json:"doi,omitempty" validate:"max=300"`
	Filters  Filters `json:"filters"`
	Page     int     `json:"page" validate:"gte=1"`
	PageSize int     `json:"pageSize" validate:"gte=1,lte=100"`
	Sort     SortKey `json:"sort" validate:"oneof=relevance date date_asc citations citations_asc author author_desc venue venue_desc title title_desc"`
}

// WithDefaults returns a copy with zero page, page size and sort replaced by their defaults
// and the query text and DOI normalized.
func (p SearchParams) WithDefaults() SearchParams {
	out := p
	out.Q = CollapseWhitespace(p.Q)
	out.DOI = NormalizeDOI(p.DOI)
	if out.Page == 0 {
		out.Page = DefaultPage
	}
	if out.PageSize == 0 {
		out.PageSize = DefaultPageSize
	}
	if out.Sort == "" {
		out.Sort = SortRelevance
	}
	return out
}

// Offset returns the zero-based index of the first hit on the requested page.
func (p SearchParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("oasource", func(fl validator.FieldLevel) bool {
		return Source(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("oastatus", func(fl validator.FieldLevel) bool {
		return OAStatus(fl.Field().String()).IsValid()
	})
	return v
}

// Validate checks p against the request bounds. WithDefaults should be applied first.
func (p SearchParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError(fe.Field(), describeFieldError(fe))
		}
		return NewValidationError("params", err.Error())
	}
	if p.Filters.YearFrom != nil && p.Filters.YearTo != nil && *p.Filters.YearFrom > *p.Filters.YearTo {
		return NewValidationError("yearFrom", "must not be after yearTo")
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s entries or characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "oasource":
		return fmt.Sprintf("unknown source %q", fe.Value())
	case "oastatus":
		return fmt.Sprintf("unknown oaStatus %q", fe.Value())
	case "required":
		return "must not be empty"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// SearchResponse is the normalized result of a search against any backend.
type SearchResponse struct {
	Hits     []OARecord                `json:"hits"`
	Facets   map[string]map[string]int `json:"facets"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"pageSize"`
	Total    int                       `json:"total"`
}

// Facet field names reported in SearchResponse.Facets.
const (
	FacetSource    = "source"
	FacetYear      = "year"
	FacetVenue     = "venue"
	FacetTopics    = "topics"
	FacetOAStatus  = "oaStatus"
	FacetPublisher = "publisher"
)

// FacetFields lists the facets every backend computes.
var FacetFields = []string{FacetSource, FacetYear, FacetVenue, FacetTopics, FacetOAStatus, FacetPublisher}

// NewSearchResponse returns an empty response for p with non-nil hits and facets.
func NewSearchResponse(p SearchParams) *SearchResponse {
	return &SearchResponse{
		Hits:     []OARecord{},
		Facets:   map[string]map[string]int{},
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}

// PDFStatus reports how the full text of a record was located.
type PDFStatus string

const (
	PDFStatusAvailable   PDFStatus = "available"
	PDFStatusResolved    PDFStatus = "resolved"
	PDFStatusUnavailable PDFStatus = "unavailable"
)

// PDFInfo describes the full text link returned with a paper.
type PDFInfo struct {
	URL    string    `json:"url,omitempty"`
	Status PDFStatus `json:"status"`
}

// PaperResponse is the detail view of a single record.
type PaperResponse struct {
	Record OARecord `json:"record"`
	PDF    PDFInfo  `json:"pdf"`
}
