package main

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/temporal"
)

func harvestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	cfg = &config.Config{
		Search:  config.SearchConfig{Index: "oa_records"},
		Harvest: config.HarvestConfig{BatchSize: 250, MaxPerSource: 40},
	}
	t.Cleanup(func() { cfg = nil })

	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	addHarvestStartFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestHarvestInputFromFlags(t *testing.T) {
	fs := harvestFlags(t,
		"-q", "open science", "--doi", "10.1/abc",
		"--source", "arxiv,doaj",
		"--year-from", "2019",
		"--batch-size", "50",
	)
	input, err := harvestInputFromFlags(fs)
	require.NoError(t, err)

	assert.Equal(t, "oa_records", input.Index)
	assert.Equal(t, "oactl", input.RequestedBy)
	assert.Equal(t, 50, input.BatchSize)
	assert.Equal(t, 40, input.MaxPerSource)
	assert.Equal(t, []domain.Source{domain.SourceArXiv, domain.SourceDOAJ}, input.Sources)
	require.Len(t, input.Queries, 2)
	assert.Equal(t, "open science", input.Queries[0].TitleOrKeywords)
	assert.Equal(t, "10.1/abc", input.Queries[1].DOI)
	assert.Equal(t, 2019, *input.Queries[1].YearFrom)
}

func TestHarvestInputFromFlags_RequiresQuery(t *testing.T) {
	_, err := harvestInputFromFlags(harvestFlags(t, "--index", "other"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	err := printProgress(&buf, &temporal.HarvestProgress{
		Status: temporal.StatusRunning, Phase: "indexing",
		FetchesDone: 4, FetchesTotal: 4,
		RecordsFetched: 10, RecordsIndexed: 6, BatchesIndexed: 3,
		Errors: []temporal.SourceError{{Source: domain.SourceNCBI, Query: 1, Reason: "timeout"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "status:   running (indexing)")
	assert.Contains(t, out, "10 fetched, 6 indexed in 3 batches")
	assert.Contains(t, out, "ncbi")
	assert.Contains(t, out, "timeout")
}
