// Package export renders hit lists as downloadable CSV, JSON or BibTeX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatBibTeX Format = "bibtex"
)

// Formats lists the supported formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatBibTeX}

// maxAbstractLen truncates abstracts in CSV rows.
const maxAbstractLen = 1000

// ParseFormat returns the format named by s, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON, FormatBibTeX:
		return f, nil
	case "bib":
		return FormatBibTeX, nil
	}
	return "", domain.NewValidationError("format", fmt.Sprintf("unsupported export format %q", s))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatBibTeX:
		return "application/x-bibtex; charset=utf-8"
	default:
		return "application/json"
	}
}

// Extension returns the file extension of f without the dot.
func (f Format) Extension() string {
	if f == FormatBibTeX {
		return "bib"
	}
	return string(f)
}

// Render writes records to w in format f.
func Render(w io.Writer, f Format, records []domain.OARecord) error {
	switch f {
	case FormatCSV:
		return renderCSV(w, records)
	case FormatJSON:
		return renderJSON(w, records)
	case FormatBibTeX:
		return renderBibTeX(w, records)
	}
	return domain.NewValidationError("format", fmt.Sprintf("unsupported export format %q", f))
}

var csvHeader = []string{
	"id", "doi", "title", "authors", "year", "venue", "publisher", "source",
	"oaStatus", "bestPdfUrl", "landingPage", "topics", "language", "createdAt", "abstract",
}

func renderCSV(w io.Writer, records []domain.OARecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		year := ""
		if r.Year != nil {
			year = strconv.Itoa(*r.Year)
		}
		row := []string{
			r.ID,
			r.DOI,
			r.Title,
			strings.Join(r.Authors, "; "),
			year,
			r.Venue,
			r.Publisher,
			string(r.Source),
			string(r.OAStatus),
			r.BestPDFURL,
			r.LandingPage,
			strings.Join(r.Topics, "; "),
			r.Language,
			r.CreatedAt.UTC().Format(time.RFC3339),
			truncate(r.Abstract, maxAbstractLen),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonExport struct {
	Total   int               `json:"total"`
	Records []domain.OARecord `json:"records"`
}

func renderJSON(w io.Writer, records []domain.OARecord) error {
	if records == nil {
		records = []domain.OARecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonExport{Total: len(records), Records: records}); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

func renderBibTeX(w io.Writer, records []domain.OARecord) error {
	keys := map[string]int{}
	for _, r := range records {
		key := CitationKey(r)
		if n := keys[key]; n > 0 {
			keys[key] = n + 1
			key += string(rune('a' + n - 1))
		} else {
			keys[key] = 1
		}

		var b strings.Builder
		fmt.Fprintf(&b, "@%s{%s,\n", entryType(r), key)
		raw := func(name, value string) {
			if value != "" {
				fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
			}
		}
		field := func(name, value string) { raw(name, escapeBibTeX(value)) }
		field("title", r.Title)
		field("author", strings.Join(r.Authors, " and "))
		if r.Year != nil {
			field("year", strconv.Itoa(*r.Year))
		}
		if r.OAStatus == domain.OAStatusPreprint {
			field("howpublished", r.Venue)
		} else {
			field("journal", r.Venue)
		}
		field("publisher", r.Publisher)
		raw("doi", r.DOI)
		link := r.LandingPage
		if link == "" {
			link = r.BestPDFURL
		}
		raw("url", link)
		field("keywords", strings.Join(r.Topics, ", "))
		b.WriteString("}\n\n")

		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("failed to write bibtex entry %s: %w", r.ID, err)
		}
	}
	return nil
}

func entryType(r domain.OARecord) string {
	if r.OAStatus == domain.OAStatusPreprint {
		return "misc"
	}
	return "article"
}

// CitationKey builds a key from the first author's last name, the year and the
// first significant title word, e.g. "lovelace2023machine". Records without
// authors fall back to their source.
func CitationKey(r domain.OARecord) string {
	var b strings.Builder
	author := r.FirstAuthor()
	if fields := strings.Fields(author); len(fields) > 0 {
		author = fields[len(fields)-1]
	} else {
		author = string(r.Source)
	}
	b.WriteString(keyPart(author))
	if r.Year != nil {
		b.WriteString(strconv.Itoa(*r.Year))
	}
	for _, word := range strings.Fields(r.Title) {
		part := keyPart(word)
		if len(part) > 3 {
			b.WriteString(part)
			break
		}
	}
	return b.String()
}

func keyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var bibtexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
)

func escapeBibTeX(s string) string {
	return bibtexEscaper.Replace(domain.CollapseWhitespace(s))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
