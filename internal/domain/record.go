// Package domain provides the canonical record model and search types for the OA Metasearch service.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Source identifies the open-access repository a record was harvested from.
type Source string

const (
	SourceArXiv         Source = "arxiv"
	SourceCORE          Source = "core"
	SourceEuropePMC     Source = "europepmc"
	SourceNCBI          Source = "ncbi"
	SourceOpenAIRE      Source = "openaire"
	SourceBioRxiv       Source = "biorxiv"
	SourceMedRxiv       Source = "medrxiv"
	SourceDOAJ          Source = "doaj"
	SourceOpenCitations Source = "opencitations"
	SourceDataCite      Source = "datacite"
)

// AllSources lists every known source in a stable order.
var AllSources = []Source{
	SourceArXiv,
	SourceCORE,
	SourceEuropePMC,
	SourceNCBI,
	SourceOpenAIRE,
	SourceBioRxiv,
	SourceMedRxiv,
	SourceDOAJ,
	SourceOpenCitations,
	SourceDataCite,
}

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// OAStatus describes the open-access version of a record.
type OAStatus string

const (
	OAStatusPreprint  OAStatus = "preprint"
	OAStatusAccepted  OAStatus = "accepted"
	OAStatusPublished OAStatus = "published"
	OAStatusOther     OAStatus = "other"
)

// IsValid reports whether s is one of the known OA statuses.
func (s OAStatus) IsValid() bool {
	switch s {
	case OAStatusPreprint, OAStatusAccepted, OAStatusPublished, OAStatusOther:
		return true
	default:
		return false
	}
}

// DefaultLanguage is applied when a source does not report a language.
const DefaultLanguage = "en"

// OARecord is the canonical representation of one paper across all sources.
// Empty strings and nil pointers denote absent optional fields.
type OARecord struct {
	ID            string     `json:"id" yaml:"id"`
	DOI           string     `json:"doi,omitempty" yaml:"doi,omitempty"`
	Title         string     `json:"title" yaml:"title"`
	Authors       []string   `json:"authors" yaml:"authors"`
	Year          *int       `json:"year,omitempty" yaml:"year,omitempty"`
	Venue         string     `json:"venue,omitempty" yaml:"venue,omitempty"`
	Publisher     string     `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Abstract      string     `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Source        Source     `json:"source" yaml:"source"`
	SourceID      string     `json:"sourceId" yaml:"sourceId"`
	OAStatus      OAStatus   `json:"oaStatus,omitempty" yaml:"oaStatus,omitempty"`
	BestPDFURL    string     `json:"bestPdfUrl,omitempty" yaml:"bestPdfUrl,omitempty"`
	LandingPage   string     `json:"landingPage,omitempty" yaml:"landingPage,omitempty"`
	Topics        []string   `json:"topics" yaml:"topics"`
	Language      string     `json:"language" yaml:"language"`
	CitationCount *int       `json:"citationCount,omitempty" yaml:"citationCount,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// RecordID derives the canonical record identifier from a source and its native identifier.
func RecordID(source Source, sourceID string) string {
	return string(source) + ":" + sourceID
}

// ParseRecordID splits a record identifier into its source and native identifier.
// Only the first colon separates the two, so native identifiers may contain colons.
func ParseRecordID(id string) (Source, string, error) {
	prefix, rest, ok := strings.Cut(id, ":")
	if !ok || prefix == "" || rest == "" {
		return "", "", NewValidationError("id", fmt.Sprintf("malformed record id %q", id))
	}
	source := Source(prefix)
	if !source.IsValid() {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedSource, prefix)
	}
	return source, rest, nil
}

// NewRecord builds a record for source/sourceID with the derived ID and the given creation time.
func NewRecord(source Source, sourceID, title string, createdAt time.Time) OARecord {
	return OARecord{
		ID:        RecordID(source, sourceID),
		Title:     title,
		Authors:   []string{},
		Source:    source,
		SourceID:  sourceID,
		Topics:    []string{},
		Language:  DefaultLanguage,
		CreatedAt: createdAt.UTC(),
	}
}

// Normalize returns a copy of r with text fields cleaned up, list fields non-nil,
// DOI normalized and language defaulted. The ID is re-derived from source and sourceId.
func (r OARecord) Normalize() OARecord {
	out := r
	out.SourceID = strings.TrimSpace(r.SourceID)
	out.ID = RecordID(r.Source, out.SourceID)
	out.Title = CollapseWhitespace(r.Title)
	out.Abstract = CollapseWhitespace(r.Abstract)
	out.Venue = CollapseWhitespace(r.Venue)
	out.Publisher = CollapseWhitespace(r.Publisher)
	out.DOI = NormalizeDOI(r.DOI)
	out.BestPDFURL = strings.TrimSpace(r.BestPDFURL)
	out.LandingPage = strings.TrimSpace(r.LandingPage)

	out.Authors = make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if a = CollapseWhitespace(a); a != "" {
			out.Authors = append(out.Authors, a)
		}
	}

	out.Topics = make([]string, 0, len(r.Topics))
	seen := make(map[string]struct{}, len(r.Topics))
	for _, t := range r.Topics {
		t = CollapseWhitespace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Topics = append(out.Topics, t)
	}

	out.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if out.Language == "" {
		out.Language = DefaultLanguage
	}
	if !out.CreatedAt.IsZero() {
		out.CreatedAt = out.CreatedAt.UTC()
	}
	return out
}

// Validate checks the invariants every stored record must satisfy.
func (r OARecord) Validate() error {
	if !r.Source.IsValid() {
		return NewValidationError("source", fmt.Sprintf("unknown source %q", r.Source))
	}
	if strings.TrimSpace(r.SourceID) == "" {
		return NewValidationError("sourceId", "is required")
	}
	if r.ID != RecordID(r.Source, r.SourceID) {
		return NewValidationError("id", fmt.Sprintf("must equal %q", RecordID(r.Source, r.SourceID)))
	}
	if strings.TrimSpace(r.Title) == "" {
		return NewValidationError("title", "is required")
	}
	if r.OAStatus != "" && !r.OAStatus.IsValid() {
		return NewValidationError("oaStatus", fmt.Sprintf("unknown status %q", r.OAStatus))
	}
	if r.CreatedAt.IsZero() {
		return NewValidationError("createdAt", "is required")
	}
	return nil
}

// FirstAuthor returns the first listed author or an empty string.
func (r OARecord) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0]
}

// HasPDF reports whether the record carries a resolved full-text URL.
func (r OARecord) HasPDF() bool {
	return r.BestPDFURL != ""
}

// doiPrefixes are stripped from DOIs in the order listed.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// NormalizeDOI lowercases a DOI and strips resolver URL and "doi:" prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, p := range doiPrefixes {
		if strings.HasPrefix(doi, p) {
			doi = strings.TrimPrefix(doi, p)
			break
		}
	}
	return strings.TrimSpace(doi)
}

// CollapseWhitespace trims s and collapses internal runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
