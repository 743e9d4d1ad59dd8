// Package biorxiv provides the bioRxiv and medRxiv preprint connectors. Both
// servers are searched through the Europe PMC preprint index (SRC:PPR), which
// supports keyword, DOI and year queries that the native bioRxiv API does not.
package biorxiv

import (
	"fmt"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/papersources/europepmc"
)

// Server selects the preprint server.
type Server string

const (
	BioRxiv Server = "bioRxiv"
	MedRxiv Server = "medRxiv"
)

// Config is the Europe PMC connector configuration.
type Config = europepmc.Config

// VariantFor returns the Europe PMC variant that restricts results to server.
func VariantFor(server Server) europepmc.Variant {
	source := domain.SourceBioRxiv
	if server == MedRxiv {
		source = domain.SourceMedRxiv
	}
	return europepmc.Variant{
		Source:    source,
		Name:      string(server),
		Filter:    fmt.Sprintf("(SRC:PPR) AND (PUBLISHER:%q)", string(server)),
		OAStatus:  domain.OAStatusPreprint,
		Publisher: string(server),
	}
}

// New creates a connector for the given preprint server.
func New(server Server, cfg Config, opts ...httpclient.Option) *europepmc.Client {
	return europepmc.NewVariant(cfg, VariantFor(server), opts...)
}

// NewWithHTTPClient creates a preprint connector using httpClient.
func NewWithHTTPClient(server Server, cfg Config, httpClient *httpclient.Client) *europepmc.Client {
	return europepmc.NewWithHTTPClient(cfg, VariantFor(server), httpClient)
}
