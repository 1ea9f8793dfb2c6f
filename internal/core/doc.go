// Package core orchestrates a MongoDB to relational migration.
//
// It depends only on the [source.Source] and [sink.Sink] interfaces, so the
// CLI, the status server and tests drive the same code.
//
// # Phases
//
// A [Migrator] runs up to four phases over the selected collections, each
// phase completing for every collection before the next begins:
//
//  1. Drop: DROP TABLE IF EXISTS when DropTables is set (failures are logged)
//  2. Schema: sample documents, infer columns, CREATE TABLE IF NOT EXISTS
//  3. Truncate: DELETE FROM each table in data-only runs with Truncate set
//  4. Copy: stream documents and insert them in transactional batches
//
// Which phases run is decided by the [Mode]:
//
//	core.NewMigrator(src, dst, core.Options{
//	    Database:  "shop",
//	    Mode:      core.ModeFull,
//	    BatchSize: 1000,
//	}).Migrate(ctx, []string{"users", "orders"})
//
// # Batches
//
// Each batch is one transaction. A failing row rolls back its batch and
// aborts the run with a [BatchError]; batches committed earlier stay in the
// target.
//
// # Progress
//
// A [Tracker] receives phase and row updates and fans snapshots out to
// subscribers with non-blocking sends, the same way the terminal reporter
// and the status server consume them.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SRC001-SRC004: MongoDB errors (unreachable, auth, missing collections)
//   - SNK001-SNK006: Target database errors (duplicates, missing tables, locks)
//   - MIG001-MIG003: Run errors (cancelled, timeout, rolled back batch)
//   - CFG001-CFG002: Configuration errors
package core
