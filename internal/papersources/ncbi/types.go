// Package ncbi implements the NCBI E-utilities (PubMed) connector.
//
// Searches are two sequential calls: esearch.fcgi returns PMIDs as JSON and
// efetch.fcgi returns the PubmedArticleSet XML for those PMIDs.
// API documentation: https://www.ncbi.nlm.nih.gov/books/NBK25499/
package ncbi

import "encoding/xml"

// ESearchResponse is the JSON envelope returned by esearch.fcgi with retmode=json.
type ESearchResponse struct {
	Result ESearchResult `json:"esearchresult"`
}

// ESearchResult lists the PMIDs matching a term. Counts are strings on the wire.
type ESearchResult struct {
	Count     string          `json:"count"`
	RetMax    string          `json:"retmax"`
	RetStart  string          `json:"retstart"`
	IDList    []string        `json:"idlist"`
	ErrorList *ESearchErrors  `json:"errorlist,omitempty"`
	Warnings  *ESearchWarning `json:"warninglist,omitempty"`
	Error     string          `json:"ERROR,omitempty"`
}

// ESearchErrors reports terms the search engine could not resolve.
type ESearchErrors struct {
	PhrasesNotFound []string `json:"phrasesnotfound"`
	FieldsNotFound  []string `json:"fieldsnotfound"`
}

type ESearchWarning struct {
	OutputMessages []string `json:"outputmessages"`
}

// PubmedArticleSet is the efetch.fcgi XML response.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData"`
}

type MedlineCitation struct {
	PMID            PMID             `xml:"PMID"`
	DateRevised     *PubMedDate      `xml:"DateRevised,omitempty"`
	Article         Article          `xml:"Article"`
	MeshHeadingList *MeshHeadingList `xml:"MeshHeadingList,omitempty"`
	KeywordList     *KeywordList     `xml:"KeywordList,omitempty"`
}

type PMID struct {
	Version int    `xml:"Version,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type PubMedDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month,omitempty"`
	Day   string `xml:"Day,omitempty"`
}

type Article struct {
	Journal      Journal       `xml:"Journal"`
	ArticleTitle string        `xml:"ArticleTitle"`
	ELocationID  []ELocationID `xml:"ELocationID,omitempty"`
	Abstract     *Abstract     `xml:"Abstract,omitempty"`
	AuthorList   *AuthorList   `xml:"AuthorList,omitempty"`
	Language     []string      `xml:"Language,omitempty"`
	ArticleDate  []ArticleDate `xml:"ArticleDate,omitempty"`
}

type Journal struct {
	JournalIssue    JournalIssue `xml:"JournalIssue"`
	Title           string       `xml:"Title,omitempty"`
	ISOAbbreviation string       `xml:"ISOAbbreviation,omitempty"`
}

type JournalIssue struct {
	Volume  string  `xml:"Volume,omitempty"`
	Issue   string  `xml:"Issue,omitempty"`
	PubDate PubDate `xml:"PubDate"`
}

// PubDate may carry either Year/Month/Day or a free-form MedlineDate such as "2020 Jan-Feb".
type PubDate struct {
	Year        string `xml:"Year,omitempty"`
	Month       string `xml:"Month,omitempty"`
	Day         string `xml:"Day,omitempty"`
	MedlineDate string `xml:"MedlineDate,omitempty"`
}

// ELocationID is an electronic location identifier (DOI or PII).
type ELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Valid   string `xml:"ValidYN,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Abstract may be structured into labeled sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText"`
}

type AbstractText struct {
	Label string `xml:"Label,attr,omitempty"`
	Value string `xml:",chardata"`
}

type AuthorList struct {
	Authors []Author `xml:"Author"`
}

type Author struct {
	ValidYN        string `xml:"ValidYN,attr,omitempty"`
	LastName       string `xml:"LastName,omitempty"`
	ForeName       string `xml:"ForeName,omitempty"`
	CollectiveName string `xml:"CollectiveName,omitempty"`
}

type ArticleDate struct {
	DateType string `xml:"DateType,attr,omitempty"`
	Year     string `xml:"Year"`
	Month    string `xml:"Month,omitempty"`
	Day      string `xml:"Day,omitempty"`
}

type MeshHeadingList struct {
	MeshHeadings []MeshHeading `xml:"MeshHeading"`
}

type MeshHeading struct {
	DescriptorName string `xml:"DescriptorName"`
}

type KeywordList struct {
	Keywords []string `xml:"Keyword"`
}

type PubmedData struct {
	ArticleIDList ArticleIDList `xml:"ArticleIdList"`
}

type ArticleIDList struct {
	ArticleIDs []ArticleID `xml:"ArticleId"`
}

// ArticleID is one identifier for the article (pubmed, doi, pmc, ...).
type ArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
