package core

import (
	"fmt"

	"github.com/JonMunkholm/docmigrate/internal/convert"
)

// Default sizes.
const (
	DefaultBatchSize  = 1000
	DefaultSampleSize = 100
)

// Mode selects which phases of a migration run.
type Mode int

const (
	// ModeFull creates tables and copies data.
	ModeFull Mode = iota
	// ModeSchemaOnly creates tables without copying data.
	ModeSchemaOnly
	// ModeDataOnly copies data into tables that already exist.
	ModeDataOnly
)

// ModeFromFlags maps the schema-only and data-only switches to a Mode.
// Setting both is rejected by configuration validation; schema-only wins
// here.
func ModeFromFlags(schemaOnly, dataOnly bool) Mode {
	switch {
	case schemaOnly:
		return ModeSchemaOnly
	case dataOnly:
		return ModeDataOnly
	default:
		return ModeFull
	}
}

func (m Mode) String() string {
	switch m {
	case ModeSchemaOnly:
		return "schema-only"
	case ModeDataOnly:
		return "data-only"
	default:
		return "full"
	}
}

// MarshalText renders the mode by name in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name produced by MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "full":
		*m = ModeFull
	case "schema-only":
		*m = ModeSchemaOnly
	case "data-only":
		*m = ModeDataOnly
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// CreatesSchema reports whether the mode runs the schema phase.
func (m Mode) CreatesSchema() bool { return m != ModeDataOnly }

// CopiesData reports whether the mode runs the data phase.
func (m Mode) CopiesData() bool { return m != ModeSchemaOnly }

// Options configures a Migrator.
type Options struct {
	Database string
	Mode     Mode

	// DropTables drops each target table before the schema phase. Ignored
	// in ModeDataOnly.
	DropTables bool

	// Truncate deletes all rows from each target table before copying.
	// Only honored in ModeDataOnly.
	Truncate bool

	BatchSize  int // rows per transaction (default: 1000)
	SampleSize int // documents sampled for inference (default: 100)

	Mapper convert.Mapper

	// Tracker receives progress updates. May be nil.
	Tracker *Tracker
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
}
