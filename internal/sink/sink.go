// Package sink defines the write side of a migration: a relational store
// that executes DDL and inserts row batches atomically.
//
// Backends:
//
//   - sqlite: a local database file, through mattn/go-sqlite3 (cgo) or
//     modernc.org/sqlite (pure Go)
//   - libsql: a remote libSQL / Turso database
//   - postgres: PostgreSQL through a pgx connection pool
//   - mysql: MySQL through go-sql-driver/mysql
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/docmigrate/internal/schema"
)

// Backend kinds.
const (
	KindSQLite   = "sqlite"
	KindLibSQL   = "libsql"
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
)

// SQLite driver names accepted in Options.SQLiteDriver.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// UnknownRows is returned by Exec when the backend cannot report how many
// rows a statement affected.
const UnknownRows int64 = -1

// Statement is a single SQL statement with its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Sink writes relational data.
type Sink interface {
	// Exec runs a single statement outside any explicit transaction and
	// returns the number of affected rows, or UnknownRows.
	Exec(ctx context.Context, sql string) (int64, error)

	// ExecTx runs statements in one transaction. Either all take effect or
	// none do.
	ExecTx(ctx context.Context, stmts []Statement) error

	// InsertBatch executes insertSQL once per row inside one transaction.
	// If any row fails the transaction is rolled back and the returned
	// error is a *RowError identifying the row.
	InsertBatch(ctx context.Context, insertSQL string, rows [][]any) error

	// Dialect returns the SQL dialect statements must be rendered in.
	Dialect() schema.Dialect

	// Describe returns a human-readable target description with secrets
	// removed.
	Describe() string

	Close() error
}

// RowError reports the row of a batch that failed to insert.
type RowError struct {
	Index int // zero-based position in the batch
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("insert row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Options selects and configures a backend.
type Options struct {
	// Driver is one of the Kind constants. Empty selects libsql when both
	// Turso settings are present and sqlite otherwise.
	Driver string

	// SQLiteDriver picks the local SQLite implementation: DriverMattn
	// (default) or DriverModernc.
	SQLiteDriver string
	Path         string

	TursoURL   string
	TursoToken string

	// DSN is the connection string for postgres and mysql.
	DSN      string
	MaxConns int
}

// Kind resolves the backend kind for these options.
func (o Options) Kind() string {
	if o.Driver != "" {
		return strings.ToLower(o.Driver)
	}
	if o.TursoURL != "" && o.TursoToken != "" {
		return KindLibSQL
	}
	return KindSQLite
}

// Open connects to the backend selected by opts and verifies it is
// reachable.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch kind := opts.Kind(); kind {
	case KindSQLite:
		return openSQLite(ctx, opts)
	case KindLibSQL:
		return openLibSQL(ctx, opts)
	case KindMySQL:
		return openMySQL(ctx, opts)
	case KindPostgres, "postgresql", "pgx":
		return openPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported sink driver: %s", kind)
	}
}
