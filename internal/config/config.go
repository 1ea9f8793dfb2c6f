// Package config provides centralized configuration management for docmigrate.
//
// Settings are layered, later layers overriding earlier ones:
//
//  1. struct tag defaults
//  2. environment variables (optionally loaded from .env)
//  3. a YAML job file passed with --config
//  4. command-line flags
//
// The result is validated once, before any connection is opened, so that
// invalid flag combinations fail fast.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Sink      SinkConfig      `yaml:"sink"`
	Migration MigrationConfig `yaml:"migration"`
	Logging   LoggingConfig   `yaml:"logging"`
	Status    StatusConfig    `yaml:"status"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

// SourceConfig holds MongoDB connection settings.
type SourceConfig struct {
	// URI is the MongoDB connection string (default: mongodb://localhost:27017)
	URI string `env:"MONGODB_URI" envAlt:"MONGO_URI" default:"mongodb://localhost:27017" yaml:"uri"`

	// AppName is reported to the server in the connection handshake (default: docmigrate)
	AppName string `env:"MONGODB_APP_NAME" default:"docmigrate" yaml:"appName"`

	// ConnectTimeout bounds connecting and server selection (default: 10s)
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" default:"10s" yaml:"connectTimeout"`

	// CursorBatchSize is the documents fetched per round trip while streaming (default: 1000)
	CursorBatchSize int `env:"MONGODB_CURSOR_BATCH_SIZE" default:"1000" yaml:"cursorBatchSize"`
}

// SinkConfig holds relational target settings.
type SinkConfig struct {
	// Driver is sqlite, libsql, postgres or mysql. Empty selects libsql when
	// both Turso variables are set, sqlite otherwise.
	Driver string `env:"SINK_DRIVER" yaml:"driver"`

	// OutputPath is the local SQLite file (default: output.db)
	OutputPath string `env:"OUTPUT_PATH" default:"output.db" yaml:"output"`

	// SQLiteDriver is sqlite3 (mattn, cgo) or sqlite (modernc, pure Go) (default: sqlite3)
	SQLiteDriver string `env:"SQLITE_DRIVER" default:"sqlite3" yaml:"sqliteDriver"`

	// TursoURL and TursoToken select a remote libSQL database
	TursoURL   string `env:"TURSO_DATABASE_URL" yaml:"tursoUrl"`
	TursoToken string `env:"TURSO_AUTH_TOKEN" yaml:"tursoToken"`

	// DSN is the postgres or mysql connection string
	DSN string `env:"SINK_DSN" yaml:"dsn"`

	// MaxConns caps the sink connection pool (default: 4)
	MaxConns int `env:"SINK_MAX_CONNS" default:"4" yaml:"maxConns"`
}

// MigrationConfig selects what to migrate and how.
type MigrationConfig struct {
	// Database is the MongoDB database to read (required)
	Database string `env:"MONGODB_DATABASE" yaml:"database"`

	// Table is a single collection to migrate; exclusive with AllTables
	Table string `env:"MONGODB_COLLECTION" yaml:"table"`

	// AllTables migrates every collection in Database
	AllTables bool `env:"MIGRATE_ALL_TABLES" default:"false" yaml:"allTables"`

	SchemaOnly bool `yaml:"schemaOnly"`
	DataOnly   bool `yaml:"dataOnly"`

	// DropTables drops target tables before creating them
	DropTables bool `yaml:"dropTables"`

	// Truncate empties target tables before copying (data-only runs)
	Truncate bool `yaml:"truncate"`

	// BatchSize is the number of rows inserted per transaction (default: 1000)
	BatchSize int `env:"BATCH_SIZE" default:"1000" yaml:"batchSize"`

	// SampleSize is the number of documents sampled for inference (default: 100)
	SampleSize int `env:"SAMPLE_SIZE" default:"100" yaml:"sampleSize"`

	// BinaryAsBlob stores binary values as raw bytes instead of Extended JSON text
	BinaryAsBlob bool `env:"BINARY_AS_BLOB" default:"false" yaml:"binaryAsBlob"`

	// Timeout bounds the whole run; 0 disables it (default: 0s)
	Timeout time.Duration `env:"MIGRATION_TIMEOUT" default:"0s" yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" yaml:"level"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" yaml:"format"`
}

// StatusConfig holds the optional progress HTTP server settings.
type StatusConfig struct {
	// Addr is the listen address, e.g. :8080. Empty disables the server.
	Addr string `env:"STATUS_ADDR" yaml:"addr"`

	// Linger keeps the server up after the run so clients can read the
	// final state (default: 0s)
	Linger time.Duration `env:"STATUS_LINGER" default:"0s" yaml:"linger"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 5s)
	ShutdownTimeout time.Duration `env:"STATUS_SHUTDOWN_TIMEOUT" default:"5s" yaml:"shutdownTimeout"`
}

// LedgerConfig holds the optional run history database.
type LedgerConfig struct {
	// URL is a PostgreSQL connection string. Empty disables the ledger.
	URL string `env:"LEDGER_DATABASE_URL" yaml:"url"`
}
