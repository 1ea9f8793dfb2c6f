package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/docmigrate/internal/schema"
	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// SQLSink is a Sink backed by a database/sql driver.
type SQLSink struct {
	db      *sql.DB
	dialect schema.Dialect
	desc    string
}

var _ Sink = (*SQLSink)(nil)

// NewSQLSink wraps an open database handle.
func NewSQLSink(db *sql.DB, dialect schema.Dialect, desc string) *SQLSink {
	return &SQLSink{db: db, dialect: dialect, desc: desc}
}

func openSQLite(ctx context.Context, opts Options) (*SQLSink, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite output path is required")
	}

	if dir := filepath.Dir(opts.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	driver := opts.SQLiteDriver
	if driver == "" {
		driver = DriverMattn
	}
	if driver != DriverMattn && driver != DriverModernc {
		return nil, fmt.Errorf("unsupported sqlite driver: %s", driver)
	}

	db, err := sql.Open(driver, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", opts.Path, err)
	}
	// A single connection keeps each transaction on one handle and avoids
	// SQLITE_BUSY between pool connections.
	db.SetMaxOpenConns(1)

	return ping(ctx, NewSQLSink(db, schema.SQLite, opts.Path))
}

func openLibSQL(ctx context.Context, opts Options) (*SQLSink, error) {
	if opts.TursoURL == "" {
		return nil, errors.New("libsql database url is required")
	}

	dsn := opts.TursoURL
	if opts.TursoToken != "" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "authToken=" + opts.TursoToken
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}

	return ping(ctx, NewSQLSink(db, schema.SQLite, opts.TursoURL))
}

func openMySQL(ctx context.Context, opts Options) (*SQLSink, error) {
	cfg, err := mysql.ParseDSN(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}

	return ping(ctx, NewSQLSink(db, schema.MySQL, "mysql://"+cfg.Addr+"/"+cfg.DBName))
}

func ping(ctx context.Context, s *SQLSink) (*SQLSink, error) {
	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("ping %s: %w", s.desc, err)
	}
	slog.Debug("sink connected", "dialect", s.dialect.Name(), "target", s.desc)
	return s, nil
}

// Exec runs a single statement.
func (s *SQLSink) Exec(ctx context.Context, query string) (int64, error) {
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return affectedRows(res), nil
}

// affectedRows returns UnknownRows when the driver cannot report a count,
// which some do for DDL.
func affectedRows(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return UnknownRows
	}
	return n
}

// ExecTx runs all statements in one transaction.
func (s *SQLSink) ExecTx(ctx context.Context, stmts []Statement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertBatch inserts rows with one prepared statement inside a single
// transaction.
func (s *SQLSink) InsertBatch(ctx context.Context, insertSQL string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return &RowError{Index: i, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLSink) Dialect() schema.Dialect { return s.dialect }
func (s *SQLSink) Describe() string        { return s.desc }
func (s *SQLSink) Close() error            { return s.db.Close() }

// DB exposes the underlying handle, mainly for tests.
func (s *SQLSink) DB() *sql.DB { return s.db }
