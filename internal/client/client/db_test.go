package client

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "inventaire.db")

	db, err := InitDatabase(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))

	for _, table := range []string{
		"goose_db_version", "metadata", "campaigns", "groups", "group_locations",
		"locations", "articles", "article_locations", "scans",
	} {
		require.Truef(t, tableExists(t, db, table), "expected table %s to exist", table)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inventaire.db")

	db, err := sql.Open("sqlite", dsn(path))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db), "second run must be a no-op")
	require.True(t, tableExists(t, db, "scans"))
}

func TestDSN(t *testing.T) {
	require.Equal(t, "file:x?mode=memory", dsn("file:x?mode=memory"))
	require.Contains(t, dsn("/tmp/a.db"), "file:/tmp/a.db?")
	require.Contains(t, dsn("/tmp/a.db"), "busy_timeout(5000)")
}
