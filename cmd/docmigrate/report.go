package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/docmigrate/internal/config"
	"github.com/JonMunkholm/docmigrate/internal/core"
)

const rule = "============================================================"

// reporter prints human-readable progress to the terminal. Structured logs
// go through slog separately.
type reporter struct {
	w    io.Writer
	seen map[string]string
}

func newReporter(w io.Writer) *reporter {
	return &reporter{w: w, seen: make(map[string]string)}
}

func (r *reporter) banner(cfg *config.Config, runID string) {
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, "MongoDB to SQL migration")
	fmt.Fprintln(r.w, rule)
	fmt.Fprintf(r.w, "Run:      %s\n", runID)
	fmt.Fprintf(r.w, "Database: %s\n", cfg.Migration.Database)
	if cfg.Migration.AllTables {
		fmt.Fprintln(r.w, "Tables:   all collections")
	} else {
		fmt.Fprintf(r.w, "Tables:   %s\n", cfg.Migration.Table)
	}
	fmt.Fprintf(r.w, "Mode:     %s\n", core.ModeFromFlags(cfg.Migration.SchemaOnly, cfg.Migration.DataOnly))
}

func (r *reporter) connected(source, target string) {
	fmt.Fprintf(r.w, "Source:   %s\n", source)
	fmt.Fprintf(r.w, "Target:   %s\n", target)
	fmt.Fprintln(r.w)
}

// watch prints one line per visible change until ch is closed.
func (r *reporter) watch(ch <-chan core.Progress) {
	for p := range ch {
		r.update(p)
	}
}

func (r *reporter) update(p core.Progress) {
	for _, c := range p.Collections {
		line := collectionLine(c)
		if line == "" || r.seen[c.Collection] == line {
			continue
		}
		r.seen[c.Collection] = line
		fmt.Fprintln(r.w, line)
	}
}

func collectionLine(c core.CollectionProgress) string {
	switch c.Phase {
	case core.PhaseSchema:
		return fmt.Sprintf("  %s: creating table", c.Collection)
	case core.PhaseCopying:
		if c.Batches == 0 {
			return fmt.Sprintf("  %s: copying %d documents", c.Collection, c.Total)
		}
		return fmt.Sprintf("  %s: %d/%d documents (%d%%)", c.Collection, c.Migrated, c.Total, c.Percent())
	case core.PhaseComplete:
		return fmt.Sprintf("  %s: done, %d documents", c.Collection, c.Migrated)
	case core.PhaseSkipped:
		return fmt.Sprintf("  %s: empty, skipped", c.Collection)
	case core.PhaseFailed:
		return fmt.Sprintf("  %s: failed", c.Collection)
	default:
		return ""
	}
}

func (r *reporter) summary(p core.Progress) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, "Migration complete")
	fmt.Fprintln(r.w, rule)
	fmt.Fprintf(r.w, "Documents migrated: %d\n", p.Documents)
	fmt.Fprintf(r.w, "Tables migrated:    %d\n", p.TablesMigrated())
	fmt.Fprintf(r.w, "Elapsed:            %.2fs\n", p.Elapsed().Seconds())
	fmt.Fprintf(r.w, "Output:             %s\n", p.Target)
}

func (r *reporter) failure(err error) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, "Migration failed")
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, core.FormatUserError(err))
	fmt.Fprintf(r.w, "Error: %s\n", strings.TrimSpace(err.Error()))
}
