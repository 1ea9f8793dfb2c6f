package config

import (
	"flag"
	"fmt"
	"io"
)

// Flags holds parsed command-line flags. Only flags that appeared on the
// command line are applied, so unset flags never override the environment
// or the job file.
type Flags struct {
	// ConfigPath is the --config job file, empty when none was given.
	ConfigPath string

	// ShowVersion is set by --version.
	ShowVersion bool

	values flagValues
	set    map[string]bool
}

type flagValues struct {
	database     string
	table        string
	allTables    bool
	schemaOnly   bool
	dataOnly     bool
	truncate     bool
	dropTables   bool
	output       string
	batchSize    int
	sampleSize   int
	mongoURI     string
	sinkDriver   string
	sqliteDriver string
	dsn          string
	statusAddr   string
	logLevel     string
	logFormat    string
	binaryAsBlob bool
}

// shortFlags maps single-letter aliases onto their long names.
var shortFlags = map[string]string{
	"d": "database",
	"t": "table",
	"o": "output",
}

// ParseFlags parses args (without the program name). Usage and parse errors
// are written to output. flag.ErrHelp is returned for -h and --help.
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{set: make(map[string]bool)}
	v := &f.values

	fs := flag.NewFlagSet("docmigrate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: docmigrate --database NAME (--table NAME | --all-tables) [options]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&v.database, "database", "", "MongoDB database to migrate")
	fs.StringVar(&v.database, "d", "", "shorthand for --database")
	fs.StringVar(&v.table, "table", "", "migrate a single collection")
	fs.StringVar(&v.table, "t", "", "shorthand for --table")
	fs.BoolVar(&v.allTables, "all-tables", false, "migrate every collection in the database")
	fs.BoolVar(&v.schemaOnly, "schema-only", false, "create tables without copying documents")
	fs.BoolVar(&v.dataOnly, "data-only", false, "copy documents into existing tables")
	fs.BoolVar(&v.truncate, "truncate", false, "empty target tables before copying (requires --data-only)")
	fs.BoolVar(&v.dropTables, "drop-tables", false, "drop target tables before creating them")
	fs.StringVar(&v.output, "output", "output.db", "SQLite output file")
	fs.StringVar(&v.output, "o", "output.db", "shorthand for --output")
	fs.IntVar(&v.batchSize, "batch-size", 1000, "rows inserted per transaction")
	fs.IntVar(&v.sampleSize, "sample-size", 100, "documents sampled for schema inference")
	fs.StringVar(&v.mongoURI, "mongodb-uri", "", "MongoDB connection string (default $MONGODB_URI)")
	fs.StringVar(&v.sinkDriver, "sink", "", "target backend: sqlite, libsql, postgres, mysql")
	fs.StringVar(&v.sqliteDriver, "sqlite-driver", "", "SQLite implementation: sqlite3 or sqlite")
	fs.StringVar(&v.dsn, "dsn", "", "postgres or mysql connection string")
	fs.StringVar(&v.statusAddr, "status-addr", "", "serve live progress over HTTP on this address")
	fs.StringVar(&v.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&v.logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&v.binaryAsBlob, "binary-as-blob", false, "store binary values as BLOBs instead of JSON text")
	fs.StringVar(&f.ConfigPath, "config", "", "YAML job file")
	fs.BoolVar(&f.ShowVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	fs.Visit(func(fl *flag.Flag) {
		name := fl.Name
		if long, ok := shortFlags[name]; ok {
			name = long
		}
		f.set[name] = true
	})

	return f, nil
}

// IsSet reports whether the named flag (long form) was given.
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// Apply overlays the flags that were set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	v := f.values
	m := &cfg.Migration

	if f.set["database"] {
		m.Database = v.database
	}
	if f.set["table"] {
		m.Table = v.table
	}
	if f.set["all-tables"] {
		m.AllTables = v.allTables
	}
	if f.set["schema-only"] {
		m.SchemaOnly = v.schemaOnly
	}
	if f.set["data-only"] {
		m.DataOnly = v.dataOnly
	}
	if f.set["truncate"] {
		m.Truncate = v.truncate
	}
	if f.set["drop-tables"] {
		m.DropTables = v.dropTables
	}
	if f.set["batch-size"] {
		m.BatchSize = v.batchSize
	}
	if f.set["sample-size"] {
		m.SampleSize = v.sampleSize
	}
	if f.set["binary-as-blob"] {
		m.BinaryAsBlob = v.binaryAsBlob
	}

	if f.set["mongodb-uri"] {
		cfg.Source.URI = v.mongoURI
	}

	if f.set["output"] {
		cfg.Sink.OutputPath = v.output
	}
	if f.set["sink"] {
		cfg.Sink.Driver = v.sinkDriver
	}
	if f.set["sqlite-driver"] {
		cfg.Sink.SQLiteDriver = v.sqliteDriver
	}
	if f.set["dsn"] {
		cfg.Sink.DSN = v.dsn
	}

	if f.set["status-addr"] {
		cfg.Status.Addr = v.statusAddr
	}
	if f.set["log-level"] {
		cfg.Logging.Level = v.logLevel
	}
	if f.set["log-format"] {
		cfg.Logging.Format = v.logFormat
	}
}

// FromArgs builds the effective configuration: defaults, then the
// environment, then the --config job file, then flags. The result is
// validated unless only --version was requested.
func FromArgs(args []string, output io.Writer) (*Config, *Flags, error) {
	flags, err := ParseFlags(args, output)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := LoadEnv()
	if err != nil {
		return nil, flags, err
	}
	if flags.ShowVersion {
		return cfg, flags, nil
	}

	if flags.ConfigPath != "" {
		if err := LoadJobFile(flags.ConfigPath, cfg); err != nil {
			return nil, flags, err
		}
	}
	flags.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, flags, err
	}
	return cfg, flags, nil
}
