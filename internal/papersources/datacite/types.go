// Package datacite implements the DataCite REST API connector for DOI-registered
// text works such as theses, reports and preprints.
//
// API documentation: https://support.datacite.org/docs/api
package datacite

// ListResponse is the JSON:API body of GET /dois.
type ListResponse struct {
	Data []Work `json:"data"`
	Meta Meta   `json:"meta"`
}

// SingleResponse is the JSON:API body of GET /dois/{doi}.
type SingleResponse struct {
	Data Work `json:"data"`
}

type Meta struct {
	Total int `json:"total"`
}

// Work is one DOI resource.
type Work struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

// Attributes holds the DataCite metadata schema fields used for mapping.
type Attributes struct {
	DOI             string        `json:"doi"`
	Titles          []Title       `json:"titles"`
	Creators        []Creator     `json:"creators"`
	Publisher       string        `json:"publisher"`
	Container       Container     `json:"container"`
	PublicationYear int           `json:"publicationYear"`
	Subjects        []Subject     `json:"subjects"`
	Dates           []Date        `json:"dates"`
	Language        string        `json:"language"`
	Types           Types         `json:"types"`
	Descriptions    []Description `json:"descriptions"`
	RightsList      []Rights      `json:"rightsList"`
	ContentURL      []string      `json:"contentUrl"`
	URL             string        `json:"url"`
	Created         string        `json:"created"`
	Registered      string        `json:"registered"`
	Updated         string        `json:"updated"`
}

type Title struct {
	Title     string `json:"title"`
	TitleType string `json:"titleType"`
}

// Creator is a person or organisation. Name is "Family, Given" for people.
type Creator struct {
	Name       string `json:"name"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	NameType   string `json:"nameType"`
}

type Container struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

type Subject struct {
	Subject string `json:"subject"`
}

// Date is a typed date such as Issued or Available, formatted YYYY, YYYY-MM or YYYY-MM-DD.
type Date struct {
	Date     string `json:"date"`
	DateType string `json:"dateType"`
}

type Types struct {
	ResourceTypeGeneral string `json:"resourceTypeGeneral"`
	ResourceType        string `json:"resourceType"`
}

type Description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"descriptionType"`
}

type Rights struct {
	Rights    string `json:"rights"`
	RightsURI string `json:"rightsUri"`
}
