package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/JonMunkholm/docmigrate/internal/logging"
	"github.com/JonMunkholm/docmigrate/internal/schema"
	"github.com/JonMunkholm/docmigrate/internal/sink"
	"github.com/JonMunkholm/docmigrate/internal/source"
)

// Migrator copies collections from a document source into a relational
// sink. A Migrator owns neither connection; callers close them.
type Migrator struct {
	src  source.Source
	dst  sink.Sink
	opts Options
}

// NewMigrator creates a Migrator. Zero batch and sample sizes fall back to
// the defaults.
func NewMigrator(src source.Source, dst sink.Sink, opts Options) *Migrator {
	opts.applyDefaults()
	return &Migrator{src: src, dst: dst, opts: opts}
}

// ResolveCollections returns the collections a run should process: every
// collection of the database when all is set, otherwise just table, which
// must exist.
func ResolveCollections(ctx context.Context, src source.Source, database, table string, all bool) ([]string, error) {
	names, err := src.ListCollections(ctx, database)
	if err != nil {
		return nil, err
	}

	if all {
		if len(names) == 0 {
			return nil, fmt.Errorf("%w in database %s", ErrNoCollections, database)
		}
		return names, nil
	}

	if !slices.Contains(names, table) {
		return nil, fmt.Errorf("%w: %s.%s", source.ErrCollectionNotFound, database, table)
	}
	return []string{table}, nil
}

// Migrate runs the configured phases over collections and returns the
// number of documents copied.
//
// Phases run in order: drop (optional), schema creation, truncate
// (optional, data-only), then data copy. Drop and truncate failures are
// logged and skipped. Any other failure stops the run; batches already
// committed stay committed.
func (m *Migrator) Migrate(ctx context.Context, collections []string) (total int64, err error) {
	tracker := m.opts.Tracker
	tracker.begin(collections)
	defer func() { tracker.finish(err) }()

	logger := logging.WithFields(ctx,
		"database", m.opts.Database,
		"mode", m.opts.Mode.String(),
		"collections", len(collections),
	)
	logger.Info("migration started", "target", m.dst.Describe())

	if m.opts.DropTables && m.opts.Mode.CreatesSchema() {
		m.dropTables(ctx, collections)
	}

	if m.opts.Mode.CreatesSchema() {
		for _, coll := range collections {
			if err := m.createTable(ctx, coll); err != nil {
				tracker.fail(coll, err)
				return 0, err
			}
		}
	}

	if !m.opts.Mode.CopiesData() {
		for _, coll := range collections {
			tracker.setPhase(coll, PhaseComplete)
		}
		logger.Info("schema created")
		return 0, nil
	}

	if m.opts.Truncate && m.opts.Mode == ModeDataOnly {
		m.truncateTables(ctx, collections)
	}

	for _, coll := range collections {
		n, err := m.copyCollection(ctx, coll)
		total += n
		if err != nil {
			tracker.fail(coll, err)
			return total, err
		}
	}

	logger.Info("migration finished", "documents", total)
	return total, nil
}

func (m *Migrator) dropTables(ctx context.Context, collections []string) {
	for _, coll := range collections {
		if _, err := m.dst.Exec(ctx, schema.DropTableSQL(m.dst.Dialect(), coll)); err != nil {
			logging.FromContext(ctx).Warn("drop table failed, continuing", "collection", coll, "error", err)
			continue
		}
		logging.FromContext(ctx).Info("table dropped", "collection", coll)
	}
}

func (m *Migrator) truncateTables(ctx context.Context, collections []string) {
	for _, coll := range collections {
		n, err := m.dst.Exec(ctx, schema.DeleteAllSQL(m.dst.Dialect(), coll))
		if err != nil {
			logging.FromContext(ctx).Warn("truncate failed, continuing", "collection", coll, "error", err)
			continue
		}
		if n == sink.UnknownRows {
			logging.FromContext(ctx).Info("table truncated", "collection", coll)
			continue
		}
		logging.FromContext(ctx).Info("table truncated", "collection", coll, "rows", n)
	}
}

// inferSchema samples a collection and infers its table schema.
func (m *Migrator) inferSchema(ctx context.Context, coll string) (*schema.Schema, error) {
	sample, err := m.src.SampleDocuments(ctx, m.opts.Database, coll, m.opts.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("sample collection %s: %w", coll, err)
	}
	return schema.Infer(coll, sample), nil
}

func (m *Migrator) createTable(ctx context.Context, coll string) error {
	m.opts.Tracker.setPhase(coll, PhaseSchema)

	s, err := m.inferSchema(ctx, coll)
	if err != nil {
		return err
	}

	if _, err := m.dst.Exec(ctx, s.CreateTableSQLFor(m.dst.Dialect())); err != nil {
		return fmt.Errorf("create table %s: %w", coll, err)
	}

	logging.FromContext(ctx).Info("table created",
		"collection", coll,
		"columns", len(s.Columns),
	)
	return nil
}

// copyCollection streams every document of coll into its table in
// batches of BatchSize rows, one transaction per batch.
func (m *Migrator) copyCollection(ctx context.Context, coll string) (int64, error) {
	tracker := m.opts.Tracker
	logger := logging.WithFields(ctx, "collection", coll)

	tracker.setPhase(coll, PhaseCounting)
	count, err := m.src.CountDocuments(ctx, m.opts.Database, coll)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", coll, err)
	}
	tracker.setTotal(coll, count)

	if count == 0 {
		logger.Info("collection is empty, skipping")
		tracker.setPhase(coll, PhaseSkipped)
		return 0, nil
	}

	// The data phase infers its own schema rather than reusing the one
	// from table creation, so data-only runs work without a schema phase.
	s, err := m.inferSchema(ctx, coll)
	if err != nil {
		return 0, err
	}
	dialect := m.dst.Dialect()
	insertSQL := s.InsertSQLFor(dialect)
	columns := s.ColumnNames()

	cur, err := m.src.StreamDocuments(ctx, m.opts.Database, coll)
	if err != nil {
		return 0, fmt.Errorf("open stream for %s: %w", coll, err)
	}
	defer cur.Close(context.WithoutCancel(ctx))

	tracker.setPhase(coll, PhaseCopying)
	logger.Info("copy started", "documents", count, "columns", len(columns))

	var (
		migrated int64
		batchNum int
		batch    = make([][]any, 0, m.opts.BatchSize)
	)

	flush := func() error {
		batchNum++
		if err := m.dst.InsertBatch(ctx, insertSQL, batch); err != nil {
			return newBatchError(coll, batchNum, err)
		}
		migrated += int64(len(batch))
		batch = batch[:0]
		tracker.advance(coll, migrated, batchNum)
		logger.Debug("batch committed", "batch", batchNum, "migrated", migrated)
		return nil
	}

	for cur.Next(ctx) {
		batch = append(batch, s.BindRow(dialect, m.opts.Mapper.Row(cur.Document(), columns)))
		if len(batch) >= m.opts.BatchSize {
			if err := flush(); err != nil {
				return migrated, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return migrated, fmt.Errorf("read collection %s: %w", coll, err)
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return migrated, err
		}
	}

	if migrated != count {
		logger.Warn("document count mismatch",
			"expected", count,
			"migrated", migrated,
		)
	}

	tracker.setPhase(coll, PhaseComplete)
	logger.Info("copy finished", "documents", migrated, "batches", batchNum)
	return migrated, nil
}
