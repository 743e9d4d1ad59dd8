// Package backend resolves the configured search backend into a search.Adapter.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/database"
	"github.com/helixir/oa-metasearch/internal/httpclient"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/search"
	"github.com/helixir/oa-metasearch/internal/search/algolia"
	"github.com/helixir/oa-metasearch/internal/search/meilisearch"
	"github.com/helixir/oa-metasearch/internal/search/memory"
	"github.com/helixir/oa-metasearch/internal/search/postgres"
	"github.com/helixir/oa-metasearch/internal/search/typesense"
)

// Config is a closed union over the supported backends. Exactly one variant
// is set and it matches Kind.
type Config struct {
	Kind  string
	Index string

	Typesense   *typesense.Config
	Meilisearch *meilisearch.Config
	Algolia     *algolia.Config
	Postgres    *PostgresConfig
	Memory      *MemoryConfig
}

// PostgresConfig selects the postgres backend.
type PostgresConfig struct {
	Database    config.DatabaseConfig
	Table       string
	AutoMigrate bool
}

// MemoryConfig selects the in-process backend.
type MemoryConfig struct{}

// Resolve validates sc and builds the variant it names.
func Resolve(sc config.SearchConfig, db config.DatabaseConfig) (Config, error) {
	if err := sc.Validate(); err != nil {
		return Config{}, err
	}

	kind := strings.ToLower(sc.Backend)
	cfg := Config{Kind: kind, Index: sc.Index}
	switch kind {
	case config.BackendTypesense:
		cfg.Typesense = &typesense.Config{
			URL:        sc.Typesense.URL,
			APIKey:     sc.Typesense.APIKey,
			Collection: sc.Index,
			Timeout:    sc.Timeout,
		}
	case config.BackendMeilisearch:
		cfg.Meilisearch = &meilisearch.Config{
			URL:              sc.Meilisearch.URL,
			APIKey:           sc.Meilisearch.APIKey,
			Index:            sc.Index,
			Timeout:          sc.Timeout,
			TaskPollInterval: sc.Meilisearch.TaskPollInterval,
		}
	case config.BackendAlgolia:
		cfg.Algolia = &algolia.Config{
			AppID:   sc.Algolia.AppID,
			APIKey:  sc.Algolia.APIKey,
			Index:   sc.Index,
			BaseURL: sc.Algolia.BaseURL,
			Timeout: sc.Timeout,
		}
	case config.BackendPostgres:
		if err := db.Validate(); err != nil {
			return Config{}, fmt.Errorf("postgres backend: %w", err)
		}
		cfg.Postgres = &PostgresConfig{Database: db, Table: sc.Index, AutoMigrate: db.MigrationAutoRun}
	case config.BackendMemory:
		cfg.Memory = &MemoryConfig{}
	default:
		return Config{}, fmt.Errorf("%w: %q", config.ErrUnsupportedBackend, sc.Backend)
	}
	return cfg, nil
}

// Deps are the shared collaborators handed to every backend.
type Deps struct {
	Logger      zerolog.Logger
	Metrics     *observability.Metrics
	HTTPOptions []httpclient.Option

	// Pool replaces the postgres connection pool opened from PostgresConfig.
	Pool database.Pool
}

// New opens the backend named by cfg and wraps it with logging, metrics and
// error normalization. The returned func releases backend resources.
func New(ctx context.Context, cfg Config, deps Deps) (search.Adapter, func(), error) {
	logger := observability.WithComponent(deps.Logger, "search")
	opts := append([]httpclient.Option{httpclient.WithMetrics(deps.Metrics)}, deps.HTTPOptions...)
	closeFn := func() {}

	var adapter search.Adapter
	switch {
	case cfg.Typesense != nil:
		adapter = typesense.New(*cfg.Typesense, opts...)
	case cfg.Meilisearch != nil:
		adapter = meilisearch.New(*cfg.Meilisearch, opts...)
	case cfg.Algolia != nil:
		adapter = algolia.New(*cfg.Algolia, opts...)
	case cfg.Postgres != nil:
		pool := deps.Pool
		if pool == nil {
			db, err := openDatabase(ctx, cfg.Postgres, logger)
			if err != nil {
				return nil, nil, err
			}
			pool = db
			closeFn = db.Close
		}
		adapter = postgres.New(pool, cfg.Postgres.Table, logger)
	case cfg.Memory != nil:
		adapter = memory.New()
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnsupportedBackend, cfg.Kind)
	}

	logger.Info().
		Str("backend", adapter.Name()).
		Str("index", cfg.Index).
		Msg("search backend configured")

	return search.Instrument(adapter, cfg.Index, logger, deps.Metrics), closeFn, nil
}

func openDatabase(ctx context.Context, cfg *PostgresConfig, logger zerolog.Logger) (*database.DB, error) {
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.AutoMigrate {
		return db, nil
	}

	migrator, err := database.NewMigrator(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close migrator")
		}
	}()
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureIndex calls a.EnsureIndex up to attempts times, waiting delay between failures.
func EnsureIndex(ctx context.Context, a search.Adapter, attempts int, delay time.Duration, logger zerolog.Logger) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = a.EnsureIndex(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Warn().Err(err).Int("attempt", i).Msg("search index not ready, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
