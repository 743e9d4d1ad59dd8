// Package catalog builds the connector registry from configuration.
package catalog

import (
	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/papersources"
	"github.com/helixir/oa-metasearch/internal/papersources/arxiv"
	"github.com/helixir/oa-metasearch/internal/papersources/biorxiv"
	"github.com/helixir/oa-metasearch/internal/papersources/datacite"
	"github.com/helixir/oa-metasearch/internal/papersources/doaj"
	"github.com/helixir/oa-metasearch/internal/papersources/europepmc"
	"github.com/helixir/oa-metasearch/internal/papersources/ncbi"
)

// Build registers a connector for every implemented source in a fixed order.
// Disabled sources are registered too so Fetch can still reach them by id; they
// are skipped during fan-out.
func Build(cfg config.SourcesConfig, logger zerolog.Logger, metrics *observability.Metrics, opts ...httpclient.Option) *papersources.Registry {
	opts = append([]httpclient.Option{httpclient.WithMetrics(metrics)}, opts...)
	registry := papersources.NewRegistry(logger, metrics, cfg.PerSourceTimeout)

	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    cfg.ArXiv.BaseURL,
		Timeout:    cfg.ArXiv.Timeout,
		RateLimit:  cfg.ArXiv.RateLimit,
		MaxResults: cfg.ArXiv.MaxResults,
		MaxRetries: cfg.ArXiv.MaxRetries,
		Enabled:    cfg.ArXiv.Enabled,
	}, opts...))

	registry.Register(europepmc.New(europepmcConfig(cfg.EuropePMC), opts...))

	registry.Register(ncbi.New(ncbi.Config{
		BaseURL:    cfg.NCBI.BaseURL,
		APIKey:     cfg.NCBI.APIKey,
		Timeout:    cfg.NCBI.Timeout,
		RateLimit:  cfg.NCBI.RateLimit,
		MaxResults: cfg.NCBI.MaxResults,
		MaxRetries: cfg.NCBI.MaxRetries,
		Enabled:    cfg.NCBI.Enabled,
	}, opts...))

	registry.Register(biorxiv.New(biorxiv.BioRxiv, europepmcConfig(cfg.BioRxiv), opts...))
	registry.Register(biorxiv.New(biorxiv.MedRxiv, europepmcConfig(cfg.MedRxiv), opts...))

	registry.Register(doaj.New(doaj.Config{
		BaseURL:    cfg.DOAJ.BaseURL,
		APIKey:     cfg.DOAJ.APIKey,
		Timeout:    cfg.DOAJ.Timeout,
		RateLimit:  cfg.DOAJ.RateLimit,
		MaxResults: cfg.DOAJ.MaxResults,
		MaxRetries: cfg.DOAJ.MaxRetries,
		Enabled:    cfg.DOAJ.Enabled,
	}, opts...))

	registry.Register(datacite.New(datacite.Config{
		BaseURL:    cfg.DataCite.BaseURL,
		Timeout:    cfg.DataCite.Timeout,
		RateLimit:  cfg.DataCite.RateLimit,
		MaxResults: cfg.DataCite.MaxResults,
		MaxRetries: cfg.DataCite.MaxRetries,
		Enabled:    cfg.DataCite.Enabled,
	}, opts...))

	return registry
}

func europepmcConfig(sc config.SourceConfig) europepmc.Config {
	return europepmc.Config{
		BaseURL:    sc.BaseURL,
		Timeout:    sc.Timeout,
		RateLimit:  sc.RateLimit,
		MaxResults: sc.MaxResults,
		MaxRetries: sc.MaxRetries,
		Enabled:    sc.Enabled,
	}
}
