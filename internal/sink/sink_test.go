package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/docmigrate/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLSink {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.db")

	s, err := Open(context.Background(), Options{
		Driver:       KindSQLite,
		SQLiteDriver: DriverModernc,
		Path:         path,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sqlSink, ok := s.(*SQLSink)
	require.True(t, ok, "sqlite sink should be *SQLSink")
	return sqlSink
}

func countRows(t *testing.T, s *SQLSink, table string) int {
	t.Helper()
	var n int
	err := s.DB().QueryRow("SELECT COUNT(*) FROM " + schema.QuoteIdentifier(table)).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestOptionsKind(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"default is local sqlite", Options{}, KindSQLite},
		{"turso needs url and token", Options{TursoURL: "libsql://db.turso.io"}, KindSQLite},
		{"turso selected", Options{TursoURL: "libsql://db.turso.io", TursoToken: "tok"}, KindLibSQL},
		{"explicit driver wins", Options{Driver: "Postgres", TursoURL: "x", TursoToken: "y"}, KindPostgres},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sink driver")

	_, err = Open(context.Background(), Options{Driver: KindSQLite, SQLiteDriver: "bogus", Path: filepath.Join(t.TempDir(), "x.db")})
	require.Error(t, err)
}

func TestOpenSQLite_CreatesParentDirectory(t *testing.T) {
	s := openTestSQLite(t)

	_, err := os.Stat(filepath.Dir(s.Describe()))
	require.NoError(t, err)
	assert.Equal(t, schema.SQLite, s.Dialect())
}

func TestSQLSink_InsertBatch(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, `CREATE TABLE "t" ("_id" TEXT PRIMARY KEY, "n" INTEGER)`)
	require.NoError(t, err)

	insert := `INSERT INTO "t" ("_id", "n") VALUES (?, ?)`
	err = s.InsertBatch(ctx, insert, [][]any{{"a", int64(1)}, {"b", nil}, {"c", int64(3)}})
	require.NoError(t, err)
	assert.Equal(t, 3, countRows(t, s, "t"))
}

func TestSQLSink_InsertBatchRollsBackOnRowFailure(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, `CREATE TABLE "t" ("_id" TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	insert := `INSERT INTO "t" ("_id") VALUES (?)`
	require.NoError(t, s.InsertBatch(ctx, insert, [][]any{{"committed"}}))

	err = s.InsertBatch(ctx, insert, [][]any{{"x1"}, {"x2"}, {"committed"}, {"x4"}})
	require.Error(t, err)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr), "expected *RowError, got %T", err)
	assert.Equal(t, 2, rowErr.Index)

	assert.Equal(t, 1, countRows(t, s, "t"), "failed batch must leave no rows behind")
}

func TestSQLSink_ExecTxIsAtomic(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, `CREATE TABLE "t" ("_id" TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	err = s.ExecTx(ctx, []Statement{
		{SQL: `INSERT INTO "t" ("_id") VALUES (?)`, Args: []any{"a"}},
		{SQL: `INSERT INTO "missing" ("_id") VALUES (?)`, Args: []any{"b"}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, s, "t"))

	err = s.ExecTx(ctx, []Statement{
		{SQL: `INSERT INTO "t" ("_id") VALUES (?)`, Args: []any{"a"}},
		{SQL: `INSERT INTO "t" ("_id") VALUES (?)`, Args: []any{"b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, s, "t"))
}

func TestSQLSink_ExecReportsAffectedRows(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, `CREATE TABLE "t" ("_id" TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, s.InsertBatch(ctx, `INSERT INTO "t" ("_id") VALUES (?)`, [][]any{{"a"}, {"b"}}))

	n, err := s.Exec(ctx, schema.DeleteAllSQL(s.Dialect(), "t"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Exec(ctx, schema.DropTableSQL(s.Dialect(), "t"))
	require.NoError(t, err)
	_, err = s.Exec(ctx, schema.DropTableSQL(s.Dialect(), "t"))
	require.NoError(t, err, "DROP TABLE IF EXISTS is idempotent")
}

type result struct {
	n   int64
	err error
}

func (r result) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r result) RowsAffected() (int64, error) { return r.n, r.err }

func TestAffectedRows(t *testing.T) {
	tests := []struct {
		name string
		res  result
		want int64
	}{
		{"reported", result{n: 3}, 3},
		{"zero is a real count", result{n: 0}, 0},
		{"driver cannot report", result{err: errors.New("no RowsAffected available after DDL")}, UnknownRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, affectedRows(tt.res))
		})
	}
}
