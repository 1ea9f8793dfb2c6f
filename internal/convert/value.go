package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Sentinel text stored for the MinKey and MaxKey types.
const (
	MinKeyText = "$minKey"
	MaxKeyText = "$maxKey"
)

// Mapper converts BSON values to driver values.
// The zero value is ready to use.
type Mapper struct {
	// BinaryAsBlob stores binary values as raw bytes. When false, binary
	// values are written as their Extended JSON text.
	BinaryAsBlob bool
}

// Value converts v using the default Mapper.
func Value(v bson.RawValue) any {
	return Mapper{}.Value(v)
}

// Row converts doc using the default Mapper.
func Row(doc bson.Raw, columns []string) []any {
	return Mapper{}.Row(doc, columns)
}

// Value converts a BSON value into one of nil, int64, float64, string or
// []byte. Values that cannot be represented are logged and become nil.
func (m Mapper) Value(v bson.RawValue) any {
	switch v.Type {
	case bsontype.Double:
		if f, ok := v.DoubleOK(); ok {
			return f
		}
	case bsontype.String:
		if s, ok := v.StringValueOK(); ok {
			return s
		}
	case bsontype.Symbol:
		if s, ok := v.SymbolOK(); ok {
			return s
		}
	case bsontype.JavaScript:
		if s, ok := v.JavaScriptOK(); ok {
			return s
		}
	case bsontype.EmbeddedDocument, bsontype.Array, bsontype.Binary:
		if v.Type == bsontype.Binary && m.BinaryAsBlob {
			if _, data, ok := v.BinaryOK(); ok {
				return append([]byte(nil), data...)
			}
			break
		}
		text, err := extJSON(v)
		if err != nil {
			slog.Warn("value serialization failed, storing NULL", "type", v.Type.String(), "error", err)
			return nil
		}
		return text
	case bsontype.ObjectID:
		if oid, ok := v.ObjectIDOK(); ok {
			return oid.Hex()
		}
	case bsontype.Boolean:
		if b, ok := v.BooleanOK(); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
	case bsontype.DateTime:
		if ms, ok := v.DateTimeOK(); ok {
			return dateTime(v, ms)
		}
	case bsontype.Int32:
		if i, ok := v.Int32OK(); ok {
			return int64(i)
		}
	case bsontype.Int64:
		if i, ok := v.Int64OK(); ok {
			return i
		}
	case bsontype.Timestamp:
		if t, _, ok := v.TimestampOK(); ok {
			return int64(t)
		}
	case bsontype.Decimal128:
		if d, ok := v.Decimal128OK(); ok {
			return d.String()
		}
	case bsontype.Regex:
		if pattern, options, ok := v.RegexOK(); ok {
			return marshalText(v.Type, struct {
				Pattern string `json:"pattern"`
				Options string `json:"options"`
			}{pattern, options})
		}
	case bsontype.CodeWithScope:
		if code, scope, ok := v.CodeWithScopeOK(); ok {
			scopeJSON, err := bson.MarshalExtJSON(scope, false, false)
			if err != nil {
				slog.Warn("value serialization failed, storing NULL", "type", v.Type.String(), "error", err)
				return nil
			}
			return marshalText(v.Type, struct {
				Code  string          `json:"code"`
				Scope json.RawMessage `json:"scope"`
			}{code, scopeJSON})
		}
	case bsontype.MinKey:
		return MinKeyText
	case bsontype.MaxKey:
		return MaxKeyText
	case bsontype.Null, bsontype.Undefined:
		return nil
	case bsontype.DBPointer:
		slog.Warn("DBPointer values are not supported, storing NULL")
		return nil
	default:
		return nil
	}

	slog.Warn("malformed BSON value, storing NULL", "type", v.Type.String())
	return nil
}

// Row converts doc into one value per column, in column order. Absent
// fields become nil and fields not named in columns are ignored.
func (m Mapper) Row(doc bson.Raw, columns []string) []any {
	row := make([]any, len(columns))
	for i, col := range columns {
		v, err := doc.LookupErr(col)
		if err != nil {
			if !errors.Is(err, bsoncore.ErrElementNotFound) {
				slog.Warn("field lookup failed, storing NULL", "field", col, "error", err)
			}
			continue
		}
		row[i] = m.Value(v)
	}
	return row
}

// dateTime renders ms as RFC 3339 in UTC. Years RFC 3339 cannot express
// fall back to the Extended JSON $date form.
func dateTime(v bson.RawValue, ms int64) any {
	t := time.UnixMilli(ms).UTC()
	if y := t.Year(); y >= 0 && y <= 9999 {
		return t.Format(time.RFC3339Nano)
	}
	text, err := extJSON(v)
	if err != nil {
		slog.Warn("value serialization failed, storing NULL", "type", v.Type.String(), "error", err)
		return nil
	}
	return text
}

// extJSON renders a single value as relaxed Extended JSON. Values are
// wrapped in a one-field document because arrays and scalars cannot be
// marshaled at the top level.
func extJSON(v bson.RawValue) (string, error) {
	wrapped, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return "", err
	}
	var out struct {
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(wrapped, &out); err != nil {
		return "", fmt.Errorf("unwrap extended json: %w", err)
	}
	return string(out.V), nil
}

func marshalText(t bsontype.Type, v any) any {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Warn("value serialization failed, storing NULL", "type", t.String(), "error", err)
		return nil
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
