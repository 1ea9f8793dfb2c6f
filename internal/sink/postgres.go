package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/docmigrate/internal/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX executes statements.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

// PostgresSink is a Sink backed by a pgx connection pool.
type PostgresSink struct {
	pool *pgxpool.Pool
	desc string
}

var _ Sink = (*PostgresSink)(nil)

func openPostgres(ctx context.Context, opts Options) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	cc := poolConfig.ConnConfig
	desc := fmt.Sprintf("postgres://%s:%d/%s", cc.Host, cc.Port, cc.Database)
	slog.Debug("sink connected", "dialect", "postgres", "target", desc)

	return &PostgresSink{pool: pool, desc: desc}, nil
}

// Exec runs a single statement.
func (s *PostgresSink) Exec(ctx context.Context, query string) (int64, error) {
	return execStatement(ctx, s.pool, Statement{SQL: query})
}

// ExecTx runs all statements in one transaction.
func (s *PostgresSink) ExecTx(ctx context.Context, stmts []Statement) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, st := range stmts {
		if _, err := execStatement(ctx, tx, st); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertBatch queues every row on a pgx.Batch and sends it inside one
// transaction, so a batch costs a single round trip.
func (s *PostgresSink) InsertBatch(ctx context.Context, insertSQL string, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertSQL, row...)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return &RowError{Index: i, Err: err}
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresSink) Dialect() schema.Dialect { return schema.Postgres }
func (s *PostgresSink) Describe() string        { return s.desc }

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func execStatement(ctx context.Context, db DBTX, st Statement) (int64, error) {
	tag, err := db.Exec(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
