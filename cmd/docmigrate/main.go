// Command docmigrate copies MongoDB collections into a relational database.
//
// Usage:
//
//	docmigrate --database shop --all-tables --output shop.db
//	docmigrate -d shop -t users --schema-only
//	docmigrate -d shop -t users --data-only --truncate
//
// Settings come from defaults, the environment (and .env), an optional YAML
// job file passed with --config, and flags, in that order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JonMunkholm/docmigrate/internal/config"
	"github.com/JonMunkholm/docmigrate/internal/convert"
	"github.com/JonMunkholm/docmigrate/internal/core"
	"github.com/JonMunkholm/docmigrate/internal/ledger"
	"github.com/JonMunkholm/docmigrate/internal/logging"
	"github.com/JonMunkholm/docmigrate/internal/sink"
	"github.com/JonMunkholm/docmigrate/internal/source/mongodb"
	"github.com/JonMunkholm/docmigrate/internal/web"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envLoaded := godotenv.Overload() == nil

	cfg, flags, err := config.FromArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		if flags != nil {
			fmt.Fprintln(stderr, core.FormatUserError(err))
			fmt.Fprintln(stderr, err)
		}
		return exitConfig
	}
	if flags.ShowVersion {
		fmt.Fprintf(stderr, "docmigrate %s\n", version)
		return exitOK
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envLoaded {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	runID := uuid.New()
	ctx := logging.ContextWithRunID(context.Background(), runID.String())
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Migration.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Migration.Timeout)
		defer cancel()
	}

	rep := newReporter(stderr)
	rep.banner(cfg, runID.String())

	if err := migrate(ctx, cfg, runID, rep); err != nil {
		logging.FromContext(ctx).Error("migration failed", "error", err, "code", core.MapError(err).Code)
		rep.failure(err)
		return exitFailed
	}
	return exitOK
}

// migrate connects both ends, runs the migration and records it.
func migrate(ctx context.Context, cfg *config.Config, runID uuid.UUID, rep *reporter) error {
	logger := logging.FromContext(ctx)

	src, err := mongodb.Connect(ctx, mongodb.Options{
		URI:             cfg.Source.URI,
		AppName:         cfg.Source.AppName,
		ConnectTimeout:  cfg.Source.ConnectTimeout,
		CursorBatchSize: cfg.Source.CursorBatchSize,
	})
	if err != nil {
		return fmt.Errorf("connect source: %w", err)
	}
	defer src.Close(context.WithoutCancel(ctx))

	dst, err := sink.Open(ctx, cfg.SinkOptions())
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer dst.Close()

	rep.connected(describeURI(cfg.Source.URI), dst.Describe())

	collections, err := core.ResolveCollections(ctx, src, cfg.Migration.Database, cfg.Migration.Table, cfg.Migration.AllTables)
	if err != nil {
		return err
	}

	mode := core.ModeFromFlags(cfg.Migration.SchemaOnly, cfg.Migration.DataOnly)
	tracker := core.NewTracker(runID.String(), cfg.Migration.Database, mode, dst.Describe())

	// The ledger is optional; a failure to reach it never blocks a run.
	var runs web.RunLister
	var store *ledger.Store
	if cfg.Ledger.URL != "" {
		store, err = ledger.Open(ctx, cfg.Ledger.URL)
		if err != nil {
			logger.Warn("run ledger unavailable", "error", err)
		} else {
			defer store.Close()
			runs = store
			if err := store.Start(ctx, &ledger.Run{
				RunID:       runID,
				Database:    cfg.Migration.Database,
				Mode:        mode.String(),
				Target:      dst.Describe(),
				Collections: collections,
			}); err != nil {
				logger.Warn("record run start", "error", err)
			}
		}
	}

	migrator := core.NewMigrator(src, dst, core.Options{
		Database:   cfg.Migration.Database,
		Mode:       mode,
		DropTables: cfg.Migration.DropTables,
		Truncate:   cfg.Migration.Truncate,
		BatchSize:  cfg.Migration.BatchSize,
		SampleSize: cfg.Migration.SampleSize,
		Mapper:     convert.Mapper{BinaryAsBlob: cfg.Migration.BinaryAsBlob},
		Tracker:    tracker,
	})

	var total int64
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rep.watch(tracker.Subscribe())
		return nil
	})

	if cfg.Status.Addr != "" {
		srvCtx, stopServer := context.WithCancel(gctx)
		server := web.NewServer(tracker, runs)
		g.Go(func() error {
			return server.Run(srvCtx, cfg.Status.Addr, cfg.Status.ShutdownTimeout)
		})
		g.Go(func() error {
			defer stopServer()
			<-tracker.Done()
			if cfg.Status.Linger > 0 {
				logger.Info("status server lingering", "for", cfg.Status.Linger)
				select {
				case <-time.After(cfg.Status.Linger):
				case <-gctx.Done():
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		n, err := migrator.Migrate(gctx, collections)
		total = n
		return err
	})

	runErr := g.Wait()

	if store != nil {
		if err := store.Finish(context.WithoutCancel(ctx), runID, total, runErr); err != nil {
			logger.Warn("record run finish", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	rep.summary(tracker.Snapshot())
	return nil
}

// describeURI returns the hosts of a MongoDB URI without credentials.
func describeURI(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || len(cs.Hosts) == 0 {
		return "mongodb"
	}
	return "mongodb://" + strings.Join(cs.Hosts, ",")
}
