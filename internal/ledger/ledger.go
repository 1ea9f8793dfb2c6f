// Package ledger records migration runs in PostgreSQL so operators can see
// what was migrated, when, and whether it succeeded.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// StatusFor maps a run's final error to its status.
func StatusFor(err error) Status {
	if err != nil {
		return StatusFailed
	}
	return StatusSucceeded
}

// Run is one migration invocation.
type Run struct {
	bun.BaseModel `bun:"table:docmigrate_runs,alias:r"`

	RunID       uuid.UUID  `bun:"run_id,pk,type:uuid" json:"run_id"`
	Database    string     `bun:"database,notnull" json:"database"`
	Mode        string     `bun:"mode,notnull" json:"mode"`
	Target      string     `bun:"target,notnull" json:"target"`
	Collections []string   `bun:"collections,array" json:"collections"`
	Documents   int64      `bun:"documents,notnull,default:0" json:"documents"`
	Status      Status     `bun:"status,notnull,default:'running'" json:"status"`
	Error       *string    `bun:"error" json:"error,omitempty"`
	StartedAt   time.Time  `bun:"started_at,notnull,default:current_timestamp" json:"started_at"`
	FinishedAt  *time.Time `bun:"finished_at" json:"finished_at,omitempty"`
}

// Store persists runs.
type Store struct {
	db *bun.DB
}

// Open connects to the ledger database and creates its table when missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("ledger: database url is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: initialize: %w", err)
	}
	return store, nil
}

// Init creates the runs table and its index.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.createTableQuery().Exec(ctx); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}

	_, err := s.db.NewCreateIndex().
		Model((*Run)(nil)).
		Index("idx_docmigrate_runs_started_at").
		Column("started_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create started_at index: %w", err)
	}
	return nil
}

// Start inserts run with status running.
func (s *Store) Start(ctx context.Context, run *Run) error {
	run.Status = StatusRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// Finish records the outcome of a run.
func (s *Store) Finish(ctx context.Context, runID uuid.UUID, documents int64, runErr error) error {
	if _, err := s.finishQuery(runID, documents, runErr, time.Now().UTC()).Exec(ctx); err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// Recent returns the newest runs first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	if err := s.recentQuery(&runs, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTableQuery() *bun.CreateTableQuery {
	return s.db.NewCreateTable().
		Model((*Run)(nil)).
		IfNotExists()
}

func (s *Store) finishQuery(runID uuid.UUID, documents int64, runErr error, at time.Time) *bun.UpdateQuery {
	var msg *string
	if runErr != nil {
		m := runErr.Error()
		msg = &m
	}

	return s.db.NewUpdate().
		Model((*Run)(nil)).
		Set("status = ?", StatusFor(runErr)).
		Set("documents = ?", documents).
		Set("error = ?", msg).
		Set("finished_at = ?", at).
		Where("run_id = ?", runID)
}

func (s *Store) recentQuery(dst *[]Run, limit int) *bun.SelectQuery {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.db.NewSelect().
		Model(dst).
		Order("started_at DESC").
		Limit(limit)
}
