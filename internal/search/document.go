package search

import (
	"strings"
	"time"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// Document is the flattened form of an OARecord stored by the document-oriented
// backends. Year is zero when unknown.
//
// Timestamps are Unix milliseconds, exact as JSON float64 numbers in every
// engine. Sub-millisecond precision is dropped, so records created within
// the same millisecond tie on the createdAt tiebreak.
type Document struct {
	ID            string   `json:"id"`
	DOI           string   `json:"doi"`
	Title         string   `json:"title"`
	TitleSort     string   `json:"titleSort"`
	Authors       []string `json:"authors"`
	FirstAuthor   string   `json:"firstAuthor"`
	Year          int      `json:"year"`
	Venue         string   `json:"venue"`
	Publisher     string   `json:"publisher"`
	Abstract      string   `json:"abstract"`
	Source        string   `json:"source"`
	SourceID      string   `json:"sourceId"`
	OAStatus      string   `json:"oaStatus"`
	BestPDFURL    string   `json:"bestPdfUrl"`
	HasPDF        bool     `json:"hasPdf"`
	LandingPage   string   `json:"landingPage"`
	Topics        []string `json:"topics"`
	Language      string   `json:"language"`
	CitationCount *int     `json:"citationCount,omitempty"`
	CreatedAt     int64    `json:"createdAt"`
	UpdatedAt     *int64   `json:"updatedAt,omitempty"`
}

// NewDocument converts a record into its index document.
func NewDocument(r domain.OARecord) Document {
	r = r.Normalize()
	d := Document{
		ID:            r.ID,
		DOI:           r.DOI,
		Title:         r.Title,
		TitleSort:     SortKeyText(r.Title),
		Authors:       r.Authors,
		FirstAuthor:   SortKeyText(r.FirstAuthor()),
		Venue:         r.Venue,
		Publisher:     r.Publisher,
		Abstract:      r.Abstract,
		Source:        string(r.Source),
		SourceID:      r.SourceID,
		OAStatus:      string(r.OAStatus),
		BestPDFURL:    r.BestPDFURL,
		HasPDF:        r.HasPDF(),
		LandingPage:   r.LandingPage,
		Topics:        r.Topics,
		Language:      r.Language,
		CitationCount: r.CitationCount,
		CreatedAt:     r.CreatedAt.UnixMilli(),
	}
	if r.Year != nil {
		d.Year = *r.Year
	}
	if r.UpdatedAt != nil {
		ms := r.UpdatedAt.UnixMilli()
		d.UpdatedAt = &ms
	}
	return d
}

// NewDocuments converts records in order.
func NewDocuments(records []domain.OARecord) []Document {
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = NewDocument(r)
	}
	return docs
}

// Record converts the document back into a record.
func (d Document) Record() domain.OARecord {
	r := domain.OARecord{
		ID:            d.ID,
		DOI:           d.DOI,
		Title:         d.Title,
		Authors:       nonNil(d.Authors),
		Venue:         d.Venue,
		Publisher:     d.Publisher,
		Abstract:      d.Abstract,
		Source:        domain.Source(d.Source),
		SourceID:      d.SourceID,
		OAStatus:      domain.OAStatus(d.OAStatus),
		BestPDFURL:    d.BestPDFURL,
		LandingPage:   d.LandingPage,
		Topics:        nonNil(d.Topics),
		Language:      d.Language,
		CitationCount: d.CitationCount,
		CreatedAt:     time.UnixMilli(d.CreatedAt).UTC(),
	}
	if d.Year != 0 {
		r.Year = domain.IntPtr(d.Year)
	}
	if d.UpdatedAt != nil {
		t := time.UnixMilli(*d.UpdatedAt).UTC()
		r.UpdatedAt = &t
	}
	if r.Language == "" {
		r.Language = domain.DefaultLanguage
	}
	return r
}

// SortKeyText folds s for case-insensitive ordering.
func SortKeyText(s string) string {
	return strings.ToLower(domain.CollapseWhitespace(s))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
