// Package federation resolves single papers and runs live searches across the
// registered repository connectors.
//
// Paper detail lookups try the active index first and fall back to the
// connector that owns the id prefix, so records that were never harvested can
// still be shown.
package federation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

// DefaultFetchTimeout bounds the connector fallback of Resolve.
const DefaultFetchTimeout = 15 * time.Second

// Paper lookup paths reported to metrics.
const (
	LookupIndex     = "index"
	LookupConnector = "connector"
	LookupMiss      = "miss"
)

// Index is the part of search.Adapter used for the fast path.
type Index interface {
	Get(ctx context.Context, id string) (*domain.OARecord, error)
}

// Sources is the part of papersources.Registry used by the service.
type Sources interface {
	Get(source domain.Source) papersources.Connector
	SearchAll(ctx context.Context, q papersources.Query, sources []domain.Source) []papersources.SourceResult
}

// PDFResolver reports the full text status of a record.
type PDFResolver interface {
	Resolve(ctx context.Context, rec domain.OARecord) domain.PDFInfo
}

// Config holds service settings.
type Config struct {
	FetchTimeout time.Duration
}

// Service answers paper detail and federated search requests.
type Service struct {
	index   Index
	sources Sources
	pdf     PDFResolver
	config  Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. pdf may be nil, in which case only the stored
// bestPdfUrl is reported.
func NewService(index Index, sources Sources, pdf PDFResolver, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Service{
		index:   index,
		sources: sources,
		pdf:     pdf,
		config:  cfg,
		logger:  observability.WithComponent(logger, "federation"),
		metrics: metrics,
	}
}

// Resolve returns the record with the given id and its PDF status.
//
// A malformed id is a validation error. An id whose prefix names no known or
// registered source, or that neither the index nor the owning connector knows,
// is domain.ErrNotFound. Index failures other than not found are returned as is.
func (s *Service) Resolve(ctx context.Context, id string) (*domain.PaperResponse, error) {
	source, sourceID, err := domain.ParseRecordID(id)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedSource) {
			s.metrics.RecordPaperLookup(LookupMiss)
			return nil, domain.NewNotFoundError("record", id)
		}
		return nil, err
	}

	logger := observability.WithRecordContext(observability.LoggerFromContext(ctx, s.logger), id)

	rec, err := s.index.Get(ctx, id)
	switch {
	case err == nil:
		s.metrics.RecordPaperLookup(LookupIndex)
		return s.respond(ctx, *rec), nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	rec, err = s.fetch(ctx, source, sourceID)
	if err != nil {
		s.metrics.RecordPaperLookup(LookupMiss)
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn().Err(err).Str("source", string(source)).Msg("connector fetch failed")
		}
		return nil, domain.NewNotFoundError("record", id)
	}

	s.metrics.RecordPaperLookup(LookupConnector)
	logger.Debug().Str("source", string(source)).Msg("record resolved from connector")
	return s.respond(ctx, *rec), nil
}

func (s *Service) fetch(ctx context.Context, source domain.Source, sourceID string) (*domain.OARecord, error) {
	if s.sources == nil {
		return nil, domain.ErrNotFound
	}
	c := s.sources.Get(source)
	if c == nil {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	rec, err := c.Fetch(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	normalized := rec.Normalize()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	return &normalized, nil
}

func (s *Service) respond(ctx context.Context, rec domain.OARecord) *domain.PaperResponse {
	resp := &domain.PaperResponse{Record: rec}
	switch {
	case s.pdf != nil:
		resp.PDF = s.pdf.Resolve(ctx, rec)
	case rec.BestPDFURL != "":
		resp.PDF = domain.PDFInfo{URL: rec.BestPDFURL, Status: domain.PDFStatusAvailable}
	default:
		resp.PDF = domain.PDFInfo{Status: domain.PDFStatusUnavailable}
	}
	return resp
}
