// Package schema models the relational table inferred for a document
// collection and renders the DDL and DML statements used to populate it.
//
// A [Schema] is built once per collection by [Infer] and is not modified
// afterward. Statement generation is pure string building; the [Dialect]
// decides identifier quoting, column types and parameter placeholders.
package schema

import (
	"strings"

	"github.com/JonMunkholm/docmigrate/internal/convert"
)

// IDField is the document identity field. It always becomes the first
// column and the primary key.
const IDField = "_id"

// Column describes a single table column.
type Column struct {
	Name       string               `json:"name"`
	Class      convert.StorageClass `json:"type"`
	Nullable   bool                 `json:"nullable"`
	PrimaryKey bool                 `json:"primary_key"`
}

// Schema is the relational shape of one collection.
type Schema struct {
	Collection string   `json:"collection"`
	Columns    []Column `json:"columns"`
}

// ColumnNames returns the column names in table order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// BindRow adapts row, built in column order, to the column types of d.
// The row is modified in place and returned.
func (s *Schema) BindRow(d Dialect, row []any) []any {
	for i, c := range s.Columns {
		if i >= len(row) || row[i] == nil {
			continue
		}
		row[i] = d.BindValue(c, row[i])
	}
	return row
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for SQLite.
func (s *Schema) CreateTableSQL() string {
	return s.CreateTableSQLFor(SQLite)
}

// CreateTableSQLFor renders CREATE TABLE IF NOT EXISTS with one column
// definition per line.
func (s *Schema) CreateTableSQLFor(d Dialect) string {
	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		def := d.QuoteIdentifier(c.Name) + " " + d.ColumnType(c)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		} else if !c.Nullable {
			def += " NOT NULL"
		}
		defs[i] = "  " + def
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(d.QuoteIdentifier(s.Collection))
	b.WriteString(" (\n")
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n)")
	return b.String()
}

// InsertSQL renders a parameterized INSERT for SQLite.
func (s *Schema) InsertSQL() string {
	return s.InsertSQLFor(SQLite)
}

// InsertSQLFor renders a parameterized INSERT listing every column in
// table order.
func (s *Schema) InsertSQLFor(d Dialect) string {
	cols := make([]string, len(s.Columns))
	params := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = d.QuoteIdentifier(c.Name)
		params[i] = d.Placeholder(i + 1)
	}
	return "INSERT INTO " + d.QuoteIdentifier(s.Collection) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(params, ", ") + ")"
}

// DropTableSQL renders DROP TABLE IF EXISTS for table.
func DropTableSQL(d Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdentifier(table)
}

// DeleteAllSQL renders an unconditional DELETE for table.
func DeleteAllSQL(d Dialect, table string) string {
	return "DELETE FROM " + d.QuoteIdentifier(table)
}

// QuoteIdentifier quotes a SQL identifier with double quotes, doubling any
// embedded double quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
