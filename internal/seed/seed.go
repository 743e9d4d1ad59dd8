// Package seed provides the built-in sample records and loads seed files for
// populating an index without running connectors.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// SampleRecords returns the three demo records, stamped with now.
func SampleRecords(now time.Time) []domain.OARecord {
	now = now.UTC()

	ml := domain.NewRecord(domain.SourceArXiv, "2301.00001", "Advances in Machine Learning for Open Science", now)
	ml.Authors = []string{"Jane Doe", "John Smith"}
	ml.Year = domain.IntPtr(2023)
	ml.Venue = "arXiv"
	ml.Abstract = "We survey machine learning methods that make open-access literature easier to search and reuse."
	ml.OAStatus = domain.OAStatusPreprint
	ml.BestPDFURL = "https://arxiv.org/pdf/2301.00001"
	ml.LandingPage = "https://arxiv.org/abs/2301.00001"
	ml.Topics = []string{"machine learning", "open science"}

	core := domain.NewRecord(domain.SourceCORE, "12345", "Open Access Publishing in the Life Sciences", now)
	core.Authors = []string{"Alice Johnson"}
	core.Year = domain.IntPtr(2022)
	core.Venue = "Journal of Open Research"
	core.Publisher = "Open Research Press"
	core.Abstract = "An analysis of open-access adoption across life science journals."
	core.DOI = "10.1234/jor.2022.001"
	core.OAStatus = domain.OAStatusPublished
	core.LandingPage = "https://core.ac.uk/works/12345"
	core.Topics = []string{"open access", "publishing"}

	epmc := domain.NewRecord(domain.SourceEuropePMC, "67890", "Genomic Data Sharing and Reproducibility", now)
	epmc.Authors = []string{"Bob Lee", "Carol White"}
	epmc.Year = domain.IntPtr(2021)
	epmc.Venue = "PLoS Computational Biology"
	epmc.Publisher = "Public Library of Science"
	epmc.Abstract = "Reproducible genomics depends on open data sharing practices."
	epmc.DOI = "10.1371/journal.pcbi.0067890"
	epmc.OAStatus = domain.OAStatusPublished
	epmc.BestPDFURL = "https://europepmc.org/articles/PMC67890/pdf"
	epmc.LandingPage = "https://europepmc.org/article/MED/67890"
	epmc.Topics = []string{"genomics", "reproducibility"}

	return []domain.OARecord{ml, core, epmc}
}

// File is the seed file layout. A bare YAML list of records is accepted too.
type File struct {
	Records []domain.OARecord `yaml:"records"`
}

// LoadFile reads records from a YAML seed file. See Parse.
func LoadFile(path string, now time.Time) ([]domain.OARecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	records, err := Parse(bytes.NewReader(data), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Parse decodes seed records. The id may be omitted; when present it must
// equal source:sourceId. A missing createdAt becomes now. Every record is normalized
// and validated; the first invalid record fails the whole file.
func Parse(r io.Reader, now time.Time) ([]domain.OARecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var records []domain.OARecord
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid seed yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return []domain.OARecord{}, nil
	}
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		err = node.Content[0].Decode(&records)
	case yaml.MappingNode:
		var f File
		err = node.Content[0].Decode(&f)
		records = f.Records
	default:
		err = errors.New("expected a list of records or a records key")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid seed yaml: %w", err)
	}

	out := make([]domain.OARecord, 0, len(records))
	for i, rec := range records {
		derived := domain.RecordID(rec.Source, strings.TrimSpace(rec.SourceID))
		if rec.ID != "" && rec.ID != derived {
			return nil, fmt.Errorf("record %d: %w", i, domain.NewValidationError("id", fmt.Sprintf("must equal %q", derived)))
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now.UTC()
		}
		rec = rec.Normalize()
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
