// Package europepmc implements the Europe PMC REST search connector. The same
// client serves the bioRxiv and medRxiv preprint connectors through Variant.
//
// API documentation: https://europepmc.org/RestfulWebService
package europepmc

// SearchResponse is the JSON body of /search with format=json and resultType=core.
type SearchResponse struct {
	Version        string     `json:"version"`
	HitCount       int        `json:"hitCount"`
	NextCursorMark string     `json:"nextCursorMark"`
	ResultList     ResultList `json:"resultList"`
}

type ResultList struct {
	Results []Result `json:"result"`
}

// Result is one work in the core result format. Flags such as isOpenAccess are "Y"/"N" strings.
type Result struct {
	ID                   string               `json:"id"`
	Source               string               `json:"source"` // MED, PMC, PPR, ...
	PMID                 string               `json:"pmid"`
	PMCID                string               `json:"pmcid"`
	DOI                  string               `json:"doi"`
	Title                string               `json:"title"`
	AuthorString         string               `json:"authorString"`
	AuthorList           *AuthorList          `json:"authorList"`
	JournalInfo          *JournalInfo         `json:"journalInfo"`
	PubYear              string               `json:"pubYear"`
	AbstractText         string               `json:"abstractText"`
	Language             string               `json:"language"`
	IsOpenAccess         string               `json:"isOpenAccess"`
	InEPMC               string               `json:"inEPMC"`
	HasPDF               string               `json:"hasPDF"`
	FirstPublicationDate string               `json:"firstPublicationDate"` // 2006-01-02
	DateOfRevision       string               `json:"dateOfRevision"`
	FullTextURLList      *FullTextURLList     `json:"fullTextUrlList"`
	KeywordList          *KeywordList         `json:"keywordList"`
	MeshHeadingList      *MeshHeadingList     `json:"meshHeadingList"`
	BookOrReportDetails  *BookOrReportDetails `json:"bookOrReportDetails"`
	PubTypeList          *PubTypeList         `json:"pubTypeList"`
}

type AuthorList struct {
	Authors []Author `json:"author"`
}

type Author struct {
	FullName       string `json:"fullName"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	CollectiveName string `json:"collectiveName"`
}

type JournalInfo struct {
	YearOfPublication int     `json:"yearOfPublication"`
	Journal           Journal `json:"journal"`
}

type Journal struct {
	Title           string `json:"title"`
	ISOAbbreviation string `json:"isoabbreviation"`
}

type FullTextURLList struct {
	URLs []FullTextURL `json:"fullTextUrl"`
}

// FullTextURL is a full-text link. DocumentStyle is pdf, html, doi, ...;
// AvailabilityCode is OA (open access), F (free) or S (subscription).
type FullTextURL struct {
	Availability     string `json:"availability"`
	AvailabilityCode string `json:"availabilityCode"`
	DocumentStyle    string `json:"documentStyle"`
	Site             string `json:"site"`
	URL              string `json:"url"`
}

type KeywordList struct {
	Keywords []string `json:"keyword"`
}

type MeshHeadingList struct {
	MeshHeadings []MeshHeading `json:"meshHeading"`
}

type MeshHeading struct {
	DescriptorName string `json:"descriptorName"`
}

type BookOrReportDetails struct {
	Publisher string `json:"publisher"`
}

type PubTypeList struct {
	PubTypes []string `json:"pubType"`
}
