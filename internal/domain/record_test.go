package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRecordID(t *testing.T) {
	assert.Equal(t, "arxiv:2301.00001", RecordID(SourceArXiv, "2301.00001"))
	assert.Equal(t, "datacite:10.5281/zenodo.1", RecordID(SourceDataCite, "10.5281/zenodo.1"))
}

func TestParseRecordID(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantSource Source
		wantNative string
		wantErr    error
	}{
		{name: "simple", id: "core:12345", wantSource: SourceCORE, wantNative: "12345"},
		{name: "native id with colon", id: "ncbi:PMC:123", wantSource: SourceNCBI, wantNative: "PMC:123"},
		{name: "doi native id", id: "doaj:10.1000/xyz", wantSource: SourceDOAJ, wantNative: "10.1000/xyz"},
		{name: "missing colon", id: "arxiv2301", wantErr: ErrInvalidInput},
		{name: "empty native id", id: "arxiv:", wantErr: ErrInvalidInput},
		{name: "empty source", id: ":123", wantErr: ErrInvalidInput},
		{name: "unknown source", id: "scopus:1", wantErr: ErrUnsupportedSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, native, err := ParseRecordID(tt.id)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, src)
			assert.Equal(t, tt.wantNative, native)
			assert.Equal(t, tt.id, RecordID(src, native))
		})
	}
}

func TestNormalizeDOI(t *testing.T) {
	tests := map[string]string{
		"10.1000/ABC":                    "10.1000/abc",
		"https://doi.org/10.1000/abc":    "10.1000/abc",
		"http://dx.doi.org/10.1000/abc":  "10.1000/abc",
		"doi:10.1000/abc":                "10.1000/abc",
		"  DOI:10.1000/Abc  ":            "10.1000/abc",
		"":                               "",
		"https://DOI.org/10.48550/ARXIV": "10.48550/arxiv",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDOI(in), "input %q", in)
	}
}

func TestOARecord_Normalize(t *testing.T) {
	rec := OARecord{
		Source:    SourceArXiv,
		SourceID:  " 2301.00001 ",
		Title:     "  Deep\n  learning  ",
		DOI:       "https://doi.org/10.1000/ABC",
		Authors:   []string{" Ada Lovelace ", "", "Alan  Turing"},
		Topics:    []string{"ML", "ml", " Biology ", ""},
		CreatedAt: testTime.In(time.FixedZone("x", 3600)),
	}

	out := rec.Normalize()

	assert.Equal(t, "arxiv:2301.00001", out.ID)
	assert.Equal(t, "2301.00001", out.SourceID)
	assert.Equal(t, "Deep learning", out.Title)
	assert.Equal(t, "10.1000/abc", out.DOI)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, out.Authors)
	assert.Equal(t, []string{"ML", "Biology"}, out.Topics)
	assert.Equal(t, DefaultLanguage, out.Language)
	assert.Equal(t, time.UTC, out.CreatedAt.Location())

	// The input is left untouched.
	assert.Equal(t, " 2301.00001 ", rec.SourceID)
}

func TestOARecord_Normalize_EmptyListsRenderAsArrays(t *testing.T) {
	out := OARecord{Source: SourceCORE, SourceID: "1", Title: "x", CreatedAt: testTime}.Normalize()

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"authors":[]`)
	assert.Contains(t, string(data), `"topics":[]`)
	assert.NotContains(t, string(data), `"citationCount"`)
}

func TestOARecord_Validate(t *testing.T) {
	valid := NewRecord(SourceEuropePMC, "67890", "A title", testTime)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *OARecord)
		field  string
	}{
		{name: "unknown source", mutate: func(r *OARecord) { r.Source = "scopus" }, field: "source"},
		{name: "empty source id", mutate: func(r *OARecord) { r.SourceID = " " }, field: "sourceId"},
		{name: "id mismatch", mutate: func(r *OARecord) { r.ID = "europepmc:other" }, field: "id"},
		{name: "empty title", mutate: func(r *OARecord) { r.Title = "" }, field: "title"},
		{name: "bad oa status", mutate: func(r *OARecord) { r.OAStatus = "gold" }, field: "oaStatus"},
		{name: "zero created at", mutate: func(r *OARecord) { r.CreatedAt = time.Time{} }, field: "createdAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSource_IsValid(t *testing.T) {
	for _, s := range AllSources {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Source("openalex").IsValid())
	assert.False(t, Source("").IsValid())
}

func TestOARecord_Helpers(t *testing.T) {
	r := NewRecord(SourceDOAJ, "abc", "T", testTime)
	assert.Equal(t, "", r.FirstAuthor())
	assert.False(t, r.HasPDF())

	r.Authors = []string{"First", "Second"}
	r.BestPDFURL = "https://example.org/a.pdf"
	assert.Equal(t, "First", r.FirstAuthor())
	assert.True(t, r.HasPDF())
}

func TestNewIndexEvent(t *testing.T) {
	rec := NewRecord(SourceArXiv, "1", "T", testTime)
	ev := NewIndexEvent("oa_records", rec, testTime)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, EventTypeRecordsIndexed, ev.Type)
	assert.Equal(t, "arxiv:1", ev.RecordID)

	data, err := ev.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"records.indexed"`)
	assert.Contains(t, string(data), `"index":"oa_records"`)
}
