//go:build integration

// Package dbtest starts a disposable PostgreSQL container for integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/database"
)

// Image is the PostgreSQL image used by integration tests.
const Image = "postgres:16-alpine"

// Config starts a container and returns a DatabaseConfig pointing at it.
// The container is terminated when t finishes.
func Config(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, Image,
		postgres.WithDatabase("oa_metasearch_test"),
		postgres.WithUsername("oasearch"),
		postgres.WithPassword("oasearch"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return &config.DatabaseConfig{
		Host:              host,
		Port:              port.Int(),
		User:              "oasearch",
		Password:          "oasearch",
		Name:              "oa_metasearch_test",
		SSLMode:           config.SSLModeDisable,
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}
}

// Migrated starts a container, applies the embedded migrations and returns
// an open pool.
func Migrated(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(context.Background(), Config(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	m, err := database.NewMigrator(db, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())
	return db
}
