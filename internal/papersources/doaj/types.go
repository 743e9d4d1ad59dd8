// Package doaj implements the Directory of Open Access Journals article search connector.
//
// API documentation: https://doaj.org/api/docs
package doaj

// SearchResponse is the body of GET /search/articles/{query}.
type SearchResponse struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Results  []Article `json:"results"`
}

// Article is one DOAJ article record. Dates are RFC 3339 strings.
type Article struct {
	ID          string  `json:"id"`
	CreatedDate string  `json:"created_date"`
	LastUpdated string  `json:"last_updated"`
	BibJSON     BibJSON `json:"bibjson"`
}

// BibJSON holds the bibliographic metadata. Year and month are strings on the wire.
type BibJSON struct {
	Title      string       `json:"title"`
	Year       string       `json:"year"`
	Month      string       `json:"month"`
	Abstract   string       `json:"abstract"`
	Authors    []Author     `json:"author"`
	Identifier []Identifier `json:"identifier"`
	Journal    Journal      `json:"journal"`
	Keywords   []string     `json:"keywords"`
	Links      []Link       `json:"link"`
	Subjects   []Subject    `json:"subject"`
}

type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
}

// Identifier is a typed identifier such as doi, pissn or eissn.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Journal struct {
	Title     string   `json:"title"`
	Publisher string   `json:"publisher"`
	Language  []string `json:"language"`
	Country   string   `json:"country"`
}

// Link is a full-text link; ContentType is e.g. PDF or HTML.
type Link struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type Subject struct {
	Scheme string `json:"scheme"`
	Term   string `json:"term"`
}
