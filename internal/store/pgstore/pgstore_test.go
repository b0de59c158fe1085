package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"heatwave/internal/store"
	"heatwave/internal/store/pgstore/migrations"
)

var _ store.Store = (*Store)(nil)

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	db, err := sql.Open("sqlite", "file:pgmig?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var called bool
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		require.Equal(t, ".", dir)
		return nil
	}

	require.NoError(t, runMigrations(context.Background(), db))
	require.True(t, called)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	db, err := sql.Open("sqlite", "file:pgmig2?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("migrate failed")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	require.ErrorIs(t, runMigrations(context.Background(), db), boom)
}

func TestMigrationsContainDocumentsTable(t *testing.T) {
	entries, err := migrations.Migrations.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}
