package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/docmigrate/internal/sink"
)

// LoadEnv reads defaults and environment variables without validating, so
// callers can overlay a job file and flags first.
func LoadEnv() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Selection
	m := c.Migration
	if m.Database == "" {
		errs = append(errs, "--database (MONGODB_DATABASE) is required")
	}
	switch {
	case m.Table == "" && !m.AllTables:
		errs = append(errs, "one of --table or --all-tables is required")
	case m.Table != "" && m.AllTables:
		errs = append(errs, "--table and --all-tables are mutually exclusive")
	}

	// Mode flags
	if m.SchemaOnly && m.DataOnly {
		errs = append(errs, "--schema-only and --data-only are mutually exclusive")
	}
	if m.Truncate && !m.DataOnly {
		errs = append(errs, "--truncate requires --data-only")
	}
	if m.DropTables && m.DataOnly {
		errs = append(errs, "--drop-tables cannot be used with --data-only")
	}

	// Sizes
	if m.BatchSize <= 0 {
		errs = append(errs, fmt.Sprintf("--batch-size (%d) must be greater than 0", m.BatchSize))
	}
	if m.SampleSize <= 0 {
		errs = append(errs, fmt.Sprintf("--sample-size (%d) must be greater than 0", m.SampleSize))
	}
	if m.Timeout < 0 {
		errs = append(errs, "MIGRATION_TIMEOUT must be non-negative")
	}

	// Source
	if c.Source.URI == "" {
		errs = append(errs, "--mongodb-uri (MONGODB_URI) is required")
	}
	if c.Source.ConnectTimeout <= 0 {
		errs = append(errs, "MONGODB_CONNECT_TIMEOUT must be positive")
	}
	if c.Source.CursorBatchSize <= 0 {
		errs = append(errs, "MONGODB_CURSOR_BATCH_SIZE must be positive")
	}

	// Sink
	switch kind := c.SinkOptions().Kind(); kind {
	case sink.KindSQLite:
		if c.Sink.OutputPath == "" {
			errs = append(errs, "--output (OUTPUT_PATH) is required for the sqlite sink")
		}
		if d := c.Sink.SQLiteDriver; d != sink.DriverMattn && d != sink.DriverModernc {
			errs = append(errs, fmt.Sprintf("SQLITE_DRIVER (%q) must be one of: %s, %s", d, sink.DriverMattn, sink.DriverModernc))
		}
	case sink.KindLibSQL:
		if c.Sink.TursoURL == "" {
			errs = append(errs, "TURSO_DATABASE_URL is required for the libsql sink")
		}
	case sink.KindPostgres, "postgresql", "pgx", sink.KindMySQL:
		if c.Sink.DSN == "" {
			errs = append(errs, fmt.Sprintf("--dsn (SINK_DSN) is required for the %s sink", kind))
		}
	default:
		errs = append(errs, fmt.Sprintf("--sink (%q) must be one of: sqlite, libsql, postgres, mysql", c.Sink.Driver))
	}
	if c.Sink.MaxConns <= 0 {
		errs = append(errs, "SINK_MAX_CONNS must be positive")
	}

	// Status server
	if c.Status.Addr != "" && c.Status.ShutdownTimeout <= 0 {
		errs = append(errs, "STATUS_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Status.Linger < 0 {
		errs = append(errs, "STATUS_LINGER must be non-negative")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// SinkOptions converts the sink settings into backend options.
func (c *Config) SinkOptions() sink.Options {
	return sink.Options{
		Driver:       c.Sink.Driver,
		SQLiteDriver: c.Sink.SQLiteDriver,
		Path:         c.Sink.OutputPath,
		TursoURL:     c.Sink.TursoURL,
		TursoToken:   c.Sink.TursoToken,
		DSN:          c.Sink.DSN,
		MaxConns:     c.Sink.MaxConns,
	}
}

// String returns a safe string representation of the config for logging.
// Connection strings and tokens are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Source: {URI: %s, AppName: %q}, ", mask(c.Source.URI), c.Source.AppName))
	b.WriteString(fmt.Sprintf("Sink: {Driver: %q, Output: %q, TursoURL: %q, TursoToken: %s, DSN: %s}, ",
		c.SinkOptions().Kind(), c.Sink.OutputPath, c.Sink.TursoURL, mask(c.Sink.TursoToken), mask(c.Sink.DSN)))
	b.WriteString(fmt.Sprintf("Migration: {Database: %q, Table: %q, AllTables: %v, SchemaOnly: %v, DataOnly: %v, BatchSize: %d, SampleSize: %d}, ",
		c.Migration.Database, c.Migration.Table, c.Migration.AllTables,
		c.Migration.SchemaOnly, c.Migration.DataOnly, c.Migration.BatchSize, c.Migration.SampleSize))
	b.WriteString(fmt.Sprintf("Status: {Addr: %q}, Ledger: {URL: %s}, ", c.Status.Addr, mask(c.Ledger.URL)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}
