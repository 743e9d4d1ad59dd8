package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

func sourcesOf(connectors []papersources.Connector) []domain.Source {
	out := make([]domain.Source, 0, len(connectors))
	for _, c := range connectors {
		out = append(out, c.Source())
	}
	return out
}

func TestBuild_Order(t *testing.T) {
	registry := Build(config.SourcesConfig{
		ArXiv:     config.SourceConfig{Enabled: true},
		EuropePMC: config.SourceConfig{Enabled: true},
		DataCite:  config.SourceConfig{Enabled: true},
	}, zerolog.Nop(), nil)

	assert.Equal(t, []domain.Source{
		domain.SourceArXiv,
		domain.SourceEuropePMC,
		domain.SourceNCBI,
		domain.SourceBioRxiv,
		domain.SourceMedRxiv,
		domain.SourceDOAJ,
		domain.SourceDataCite,
	}, sourcesOf(registry.All()))

	assert.Equal(t, []domain.Source{
		domain.SourceArXiv,
		domain.SourceEuropePMC,
		domain.SourceDataCite,
	}, sourcesOf(registry.Enabled()))

	require.NotNil(t, registry.Get(domain.SourceMedRxiv))
	assert.Equal(t, "medRxiv", registry.Get(domain.SourceMedRxiv).Name())
	assert.Nil(t, registry.Get(domain.SourceCORE))
}

func TestBuild_SearchAllUsesConfiguredBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id": "10.1/a", "attributes": {"doi": "10.1/a", "titles": [{"title": "Configured"}], "publicationYear": 2020}}]}`))
	}))
	defer server.Close()

	registry := Build(config.SourcesConfig{
		DataCite: config.SourceConfig{Enabled: true, BaseURL: server.URL, RateLimit: 100},
	}, zerolog.Nop(), nil)

	results := registry.SearchAll(context.Background(), papersources.Query{TitleOrKeywords: "configured"}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SourceDataCite, results[0].Source)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Records, 1)
	assert.Equal(t, "datacite:10.1/a", results[0].Records[0].ID)
}
