package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/docmigrate/internal/convert"
)

// Dialect captures the SQL differences between supported sinks.
type Dialect interface {
	// Name is the short dialect name used in logs and configuration.
	Name() string
	QuoteIdentifier(name string) string
	// ColumnType returns the declared type for a column.
	ColumnType(c Column) string
	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder(n int) string
	// BindValue adapts a converted value to the declared type of c before
	// it is bound. Dialects with dynamic typing return v unchanged.
	BindValue(c Column, v any) any
}

// Supported dialects.
var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
)

// DialectByName looks up a dialect by its Name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3", "libsql":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unknown dialect: %s", name)
	}
}

// sqliteDialect declares columns with the storage class name, which SQLite
// maps directly to type affinity.
type sqliteDialect struct{}

func (sqliteDialect) Name() string                       { return "sqlite" }
func (sqliteDialect) QuoteIdentifier(name string) string { return QuoteIdentifier(name) }
func (sqliteDialect) ColumnType(c Column) string         { return c.Class.String() }
func (sqliteDialect) Placeholder(int) string             { return "?" }
func (sqliteDialect) BindValue(_ Column, v any) any      { return v }

type postgresDialect struct{}

func (postgresDialect) Name() string                       { return "postgres" }
func (postgresDialect) QuoteIdentifier(name string) string { return QuoteIdentifier(name) }
func (postgresDialect) Placeholder(n int) string           { return "$" + strconv.Itoa(n) }

func (postgresDialect) ColumnType(c Column) string {
	switch c.Class {
	case convert.Integer:
		return "BIGINT"
	case convert.Real:
		return "DOUBLE PRECISION"
	case convert.Blob:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

// BindValue renders numbers as text for TEXT columns and widens integers
// for DOUBLE PRECISION columns. pgx encodes by the column's type and has no
// plan for an int64 bound to text.
func (postgresDialect) BindValue(c Column, v any) any {
	switch c.Class {
	case convert.Text, convert.Null:
		switch x := v.(type) {
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64)
		case []byte:
			return string(x)
		}
	case convert.Real:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case convert.Blob:
		if s, ok := v.(string); ok {
			return []byte(s)
		}
	}
	return v
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string           { return "mysql" }
func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) BindValue(_ Column, v any) any { return v }

func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ColumnType uses VARCHAR for the key column since MySQL cannot index an
// unbounded TEXT column without a prefix length.
func (mysqlDialect) ColumnType(c Column) string {
	if c.PrimaryKey {
		return "VARCHAR(255)"
	}
	switch c.Class {
	case convert.Integer:
		return "BIGINT"
	case convert.Real:
		return "DOUBLE"
	case convert.Blob:
		return "LONGBLOB"
	default:
		return "LONGTEXT"
	}
}
