package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/oa-metasearch/internal/domain"
)

func TestHarvestInput_WithDefaults(t *testing.T) {
	in := HarvestInput{Index: "oa_records"}.WithDefaults()
	assert.Equal(t, DefaultHarvestBatchSize, in.BatchSize)
	assert.Equal(t, DefaultHarvestMaxPerSource, in.MaxPerSource)

	in = HarvestInput{BatchSize: 10, MaxPerSource: 5}.WithDefaults()
	assert.Equal(t, 10, in.BatchSize)
	assert.Equal(t, 5, in.MaxPerSource)
}

func TestHarvestInput_Validate(t *testing.T) {
	query := []HarvestQuery{{DOI: "10.1/x"}}
	tests := []struct {
		name  string
		input HarvestInput
		ok    bool
	}{
		{"valid", HarvestInput{Index: "i", Queries: query}, true},
		{"missing index", HarvestInput{Index: " ", Queries: query}, false},
		{"no queries", HarvestInput{Index: "i"}, false},
		{"empty query", HarvestInput{Index: "i", Queries: []HarvestQuery{{}}}, false},
		{"inverted years", HarvestInput{Index: "i", Queries: []HarvestQuery{{
			TitleOrKeywords: "x", YearFrom: domain.IntPtr(2024), YearTo: domain.IntPtr(2020),
		}}}, false},
		{"unknown source", HarvestInput{Index: "i", Queries: query, Sources: []domain.Source{"scopus"}}, false},
		{"batch too large", HarvestInput{Index: "i", Queries: query, BatchSize: MaxHarvestBatchSize + 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestHarvestWorkflowID(t *testing.T) {
	assert.Equal(t, "harvest-oa_records", HarvestWorkflowID("oa_records"))
}
