package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/movieguess/apps/go-server/assets"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateEmbedded(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	require.NoError(t, Migrate(ctx, db, assets.Migrations()))
	require.NoError(t, Migrate(ctx, db, assets.Migrations()), "second run is a no-op")

	for _, table := range []string{"users", "games", "daily_results"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var applied int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestMigrateOrderAndFailure(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	fsys := fstest.MapFS{
		"002_add.sql":  {Data: []byte(`INSERT INTO t(v) VALUES ('second');`)},
		"001_make.sql": {Data: []byte(`CREATE TABLE t (v TEXT);`)},
		"003_bad.sql":  {Data: []byte(`INSERT INTO missing VALUES (1);`)},
		"README.md":    {Data: []byte(`ignored`)},
	}
	err := Migrate(ctx, db, fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "003_bad.sql")

	var v string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT v FROM t`).Scan(&v))
	assert.Equal(t, "second", v)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _migrations WHERE name='003_bad.sql'`).Scan(&n))
	assert.Zero(t, n, "failed migration is not recorded")
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	require.NoError(t, Migrate(ctx, db, assets.Migrations()))

	_, err := db.ExecContext(ctx, `INSERT INTO games (id, user_id, category, movie_id, movie_title, status, max_guesses, started_at)
		VALUES ('g1', 'nobody', 'popular', 1, 'Heat', 'won', 5, '2026-01-01T00:00:00Z')`)
	assert.Error(t, err)
}
