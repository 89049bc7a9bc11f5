package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesParentDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "bot.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Exec(ctx, db, `CREATE TABLE t (v TEXT)`, `INSERT INTO t (v) VALUES ('x')`))
	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestExecReportsFailingStatement(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	defer db.Close()

	err = Exec(ctx, db, `CREATE TABLE`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CREATE TABLE")
}

func TestLowerFuncFoldsUnicode(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	defer db.Close()

	var got string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT `+LowerFunc+`(?)`, "ÉCOLE Über").Scan(&got))
	require.Equal(t, "école über", got)
}
