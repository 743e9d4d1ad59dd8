//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/database"
	"github.com/helixir/oa-metasearch/internal/database/dbtest"
)

func TestDB_Integration(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, dbtest.Config(t), zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, db.Ping(ctx))
	})

	t.Run("transaction", func(t *testing.T) {
		var result int
		err := database.InTx(ctx, db, zerolog.Nop(), func(tx pgx.Tx) error {
			require.NoError(t, database.AcquireAdvisoryLockTx(ctx, tx, database.LockKey("test")))
			return tx.QueryRow(ctx, "SELECT 42").Scan(&result)
		})
		require.NoError(t, err)
		assert.Equal(t, 42, result)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		err := database.InTx(ctx, db, zerolog.Nop(), func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "SELECT * FROM no_such_table")
			return err
		})
		assert.Error(t, err)
	})

	t.Run("migrations up and down", func(t *testing.T) {
		m, err := database.NewMigrator(db, zerolog.Nop())
		require.NoError(t, err)
		defer m.Close()

		require.NoError(t, m.Up())
		require.NoError(t, m.Up())

		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.False(t, dirty)

		var exists bool
		require.NoError(t, db.QueryRow(ctx, "SELECT to_regclass('oa_records') IS NOT NULL").Scan(&exists))
		assert.True(t, exists)

		require.NoError(t, m.Down())
		require.NoError(t, db.QueryRow(ctx, "SELECT to_regclass('oa_records') IS NOT NULL").Scan(&exists))
		assert.False(t, exists)
	})
}
