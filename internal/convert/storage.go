// Package convert maps BSON values onto relational storage classes and
// driver values.
//
// Every BSON type tag belongs to exactly one [StorageClass]. [Classify] is
// used by schema inference to vote on a column type; [Value] produces the
// value actually bound to an INSERT parameter. Both are total: unknown or
// malformed input degrades to NULL rather than failing.
package convert

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// StorageClass is the relational storage class of a value.
//
// The declaration order is also the tie-break priority used by schema
// inference: lower values win ties.
type StorageClass int

const (
	Integer StorageClass = iota
	Real
	Text
	Blob
	Null
)

// String returns the SQLite type name for the class.
func (c StorageClass) String() string {
	switch c {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	case Null:
		return "NULL"
	default:
		return "NULL"
	}
}

// MarshalText lets storage classes render by name in JSON and YAML output.
func (c StorageClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify returns the storage class for a BSON value.
//
// Documents and arrays are stored as JSON text, so they classify as Text.
// Types with no relational meaning (null, undefined, DBPointer) and any tag
// this package does not recognize classify as Null.
func Classify(v bson.RawValue) StorageClass {
	switch v.Type {
	case bsontype.Double:
		return Real
	case bsontype.String, bsontype.ObjectID, bsontype.DateTime, bsontype.Regex, bsontype.JavaScript,
		bsontype.CodeWithScope, bsontype.Decimal128, bsontype.Symbol, bsontype.MinKey, bsontype.MaxKey:
		return Text
	case bsontype.EmbeddedDocument, bsontype.Array:
		return Text
	case bsontype.Binary:
		return Blob
	case bsontype.Boolean, bsontype.Int32, bsontype.Int64, bsontype.Timestamp:
		return Integer
	case bsontype.Null, bsontype.Undefined, bsontype.DBPointer:
		return Null
	default:
		return Null
	}
}
