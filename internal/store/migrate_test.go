package store

import (
	"context"
	"path"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)

	for _, dialect := range []Dialect{Postgres, SQLite} {
		up, err := migrationNames(dialect, ".up.sql")
		require.NoError(t, err)
		down, err := migrationNames(dialect, ".down.sql")
		require.NoError(t, err)

		if len(up) == 0 {
			t.Fatalf("%s: no migrations discovered", dialect.Name)
		}
		require.Len(t, down, len(up), "%s: every up migration needs a down file", dialect.Name)

		for i := range up {
			upMatch := pattern.FindStringSubmatch(path.Base(up[i]))
			downMatch := pattern.FindStringSubmatch(path.Base(down[i]))
			require.NotNil(t, upMatch, up[i])
			require.NotNil(t, downMatch, down[i])
			assert.Equal(t, upMatch[1], downMatch[1])
		}
	}
}

func TestDialectsShipTheSameVersions(t *testing.T) {
	pg, err := migrationNames(Postgres, ".up.sql")
	require.NoError(t, err)
	lite, err := migrationNames(SQLite, ".up.sql")
	require.NoError(t, err)

	require.Len(t, lite, len(pg))
	for i := range pg {
		assert.Equal(t, path.Base(pg[i]), path.Base(lite[i]))
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, SQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, ApplyMigrations(ctx, db, SQLite))
	require.NoError(t, ApplyMigrations(ctx, db, SQLite))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	files, err := migrationNames(SQLite, ".up.sql")
	require.NoError(t, err)
	assert.Equal(t, len(files), count)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\nCREATE INDEX b ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX b ON a (x)"}, stmts)
}
