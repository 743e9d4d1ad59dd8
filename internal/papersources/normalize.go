package papersources

import (
	"regexp"
	"strings"
)

// PMCPDFURL synthesizes the PMC full-text PDF link for a PMC identifier.
func PMCPDFURL(pmcid string) string {
	pmcid = strings.ToUpper(strings.TrimSpace(pmcid))
	if pmcid == "" {
		return ""
	}
	if !strings.HasPrefix(pmcid, "PMC") {
		pmcid = "PMC" + pmcid
	}
	return "https://www.ncbi.nlm.nih.gov/pmc/articles/" + pmcid + "/pdf/"
}

// PDFCandidate is one full-text link offered by a source.
type PDFCandidate struct {
	URL  string
	Type string
}

// BestPDFURL picks a full-text URL: a candidate typed pdf first, then one whose
// path ends in .pdf, then the PMC link synthesized from pmcid.
func BestPDFURL(candidates []PDFCandidate, pmcid string) string {
	for _, c := range candidates {
		t := strings.ToLower(c.Type)
		if c.URL != "" && (t == "pdf" || t == "application/pdf") {
			return c.URL
		}
	}
	for _, c := range candidates {
		if hasPDFSuffix(c.URL) {
			return c.URL
		}
	}
	return PMCPDFURL(pmcid)
}

func hasPDFSuffix(u string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(u, ".pdf")
}

// iso639 maps the three-letter bibliographic language codes seen most often.
var iso639 = map[string]string{
	"eng": "en", "fre": "fr", "fra": "fr", "ger": "de", "deu": "de",
	"spa": "es", "ita": "it", "jpn": "ja", "chi": "zh", "zho": "zh",
	"rus": "ru", "por": "pt", "dut": "nl", "nld": "nl", "pol": "pl",
	"kor": "ko", "tur": "tr", "swe": "sv",
}

// LanguageCode converts a bibliographic language code or name to ISO 639-1
// where known and returns it lowercased otherwise.
func LanguageCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if code, ok := iso639[lang]; ok {
		return code
	}
	switch lang {
	case "english":
		return "en"
	case "french":
		return "fr"
	case "german":
		return "de"
	case "spanish":
		return "es"
	}
	return lang
}

var tagRegex = regexp.MustCompile(`<[^>]+>`)

// StripTags removes inline markup such as <i> or <jats:p> some sources embed in titles and abstracts.
func StripTags(s string) string {
	return tagRegex.ReplaceAllString(s, "")
}
