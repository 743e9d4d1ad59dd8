// Package observability provides logging, metrics, and context helpers for
// the OA Metasearch service.
//
// # Logging
//
// Create a logger from configuration and enrich it per request:
//
//	logger := observability.NewLogger(cfg.Logging)
//	log := observability.LoggerFromContext(ctx, logger)
//	log.Info().Str("source", "arxiv").Msg("connector search completed")
//
// # Metrics
//
//	metrics := observability.NewMetrics("oasearch")
//	metrics.RecordSearchCompleted("arxiv", 25, 0.8)
//
// A nil *Metrics is valid and records nothing.
//
// # Standard Fields
//
//   - correlation_id: per-request identifier propagated from X-Correlation-ID
//   - source: connector source (arxiv, ncbi, europepmc, ...)
//   - backend: search backend (typesense, meilisearch, algolia, postgres, memory)
//   - index: search index or collection name
//   - record_id: canonical record identifier (source:sourceId)
//   - workflow_id: Temporal workflow identifier
package observability
