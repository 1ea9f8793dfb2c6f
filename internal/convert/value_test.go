package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// rawValue marshals v inside a one-field document and returns the field.
func rawValue(t *testing.T, v any) bson.RawValue {
	t.Helper()
	doc, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	require.NoError(t, err)
	return bson.Raw(doc).Lookup("v")
}

func TestClassify(t *testing.T) {
	oid := primitive.NewObjectID()
	dec, err := primitive.ParseDecimal128("1.5")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
		want  StorageClass
	}{
		{"double", 1.5, Real},
		{"string", "hello", Text},
		{"object id", oid, Text},
		{"datetime", primitive.NewDateTimeFromTime(time.Unix(0, 0)), Text},
		{"regex", primitive.Regex{Pattern: "^a", Options: "i"}, Text},
		{"javascript", primitive.JavaScript("f()"), Text},
		{"code with scope", primitive.CodeWithScope{Code: "f()", Scope: bson.D{{Key: "x", Value: 1}}}, Text},
		{"decimal128", dec, Text},
		{"symbol", primitive.Symbol("sym"), Text},
		{"min key", primitive.MinKey{}, Text},
		{"max key", primitive.MaxKey{}, Text},
		{"document", bson.D{{Key: "a", Value: 1}}, Text},
		{"array", bson.A{1, 2}, Text},
		{"binary", primitive.Binary{Data: []byte{1, 2}}, Blob},
		{"boolean", true, Integer},
		{"int32", int32(7), Integer},
		{"int64", int64(7), Integer},
		{"timestamp", primitive.Timestamp{T: 10, I: 1}, Integer},
		{"null", nil, Null},
		{"undefined", primitive.Undefined{}, Null},
		{"db pointer", primitive.DBPointer{DB: "db.coll", Pointer: oid}, Null},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(rawValue(t, tt.value)))
		})
	}
}

func TestClassify_UnknownTagIsNull(t *testing.T) {
	assert.Equal(t, Null, Classify(bson.RawValue{}))
	assert.Equal(t, Null, Classify(bson.RawValue{Type: bsontype.Type(0x42)}))
}

func TestStorageClass_String(t *testing.T) {
	assert.Equal(t, "INTEGER", Integer.String())
	assert.Equal(t, "REAL", Real.String())
	assert.Equal(t, "TEXT", Text.String())
	assert.Equal(t, "BLOB", Blob.String())
	assert.Equal(t, "NULL", Null.String())
	assert.True(t, Integer < Real && Real < Text && Text < Blob && Blob < Null)
}

func TestValue_Scalars(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("65a1b2c3d4e5f60718293a4b")
	require.NoError(t, err)
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"double", 2.25, 2.25},
		{"string", "Alice", "Alice"},
		{"object id", oid, "65a1b2c3d4e5f60718293a4b"},
		{"datetime", primitive.NewDateTimeFromTime(when), "2024-01-02T03:04:05Z"},
		{"true", true, int64(1)},
		{"false", false, int64(0)},
		{"int32", int32(30), int64(30)},
		{"int64", int64(1) << 40, int64(1) << 40},
		{"timestamp keeps seconds", primitive.Timestamp{T: 1700000000, I: 3}, int64(1700000000)},
		{"javascript", primitive.JavaScript("return 1"), "return 1"},
		{"symbol", primitive.Symbol("sym"), "sym"},
		{"min key", primitive.MinKey{}, "$minKey"},
		{"max key", primitive.MaxKey{}, "$maxKey"},
		{"null", nil, nil},
		{"undefined", primitive.Undefined{}, nil},
		{"db pointer", primitive.DBPointer{DB: "db.coll", Pointer: oid}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Value(rawValue(t, tt.value)))
		})
	}
}

func TestValue_DateTimeOutsideRFC3339(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"year 10000", time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), `{"$date":{"$numberLong":"253402300800000"}}`},
		{"year -1", time.Date(-1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), `{"$date":{"$numberLong":"-62198755200000"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Value(rawValue(t, primitive.DateTime(tt.ms))).(string)
			require.True(t, ok, "expected string value")
			assert.JSONEq(t, tt.want, got)
		})
	}

	assert.Equal(t, "9999-12-31T23:59:59.999Z",
		Value(rawValue(t, primitive.DateTime(time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()))))
	assert.Equal(t, "0000-01-01T00:00:00Z",
		Value(rawValue(t, primitive.DateTime(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))))
}

func TestValue_JSONText(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"document", bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}}, `{"a":1,"b":"x"}`},
		{"array", bson.A{int32(1), "two"}, `[1,"two"]`},
		{"nested", bson.D{{Key: "tags", Value: bson.A{"x"}}}, `{"tags":["x"]}`},
		{"regex", primitive.Regex{Pattern: "^a", Options: "i"}, `{"pattern":"^a","options":"i"}`},
		{"code with scope", primitive.CodeWithScope{Code: "f()", Scope: bson.D{{Key: "x", Value: int32(1)}}}, `{"code":"f()","scope":{"x":1}}`},
		{"binary", primitive.Binary{Subtype: 0, Data: []byte{1, 2}}, `{"$binary":{"base64":"AQI=","subType":"00"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Value(rawValue(t, tt.value)).(string)
			require.True(t, ok, "expected string value")
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestValue_BinaryAsBlob(t *testing.T) {
	m := Mapper{BinaryAsBlob: true}
	got := m.Value(rawValue(t, primitive.Binary{Data: []byte{0xde, 0xad}}))
	assert.Equal(t, []byte{0xde, 0xad}, got)
}

func TestValue_DecimalRoundTrip(t *testing.T) {
	for _, in := range []string{"0.1", "12345678901234567890.123456789", "-42", "1E+10"} {
		t.Run(in, func(t *testing.T) {
			dec, err := primitive.ParseDecimal128(in)
			require.NoError(t, err)

			got, ok := Value(rawValue(t, dec)).(string)
			require.True(t, ok, "decimal must be stored as text")

			back, err := primitive.ParseDecimal128(got)
			require.NoError(t, err)
			assert.Equal(t, dec.String(), back.String())
		})
	}
}

func TestRow(t *testing.T) {
	doc, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "2"},
		{Key: "name", Value: "Bob"},
		{Key: "extra", Value: true},
	})
	require.NoError(t, err)

	columns := []string{"_id", "age", "name"}
	row := Row(doc, columns)

	require.Len(t, row, len(columns))
	assert.Equal(t, []any{"2", nil, "Bob"}, row)
}

func TestRow_EmptyDocument(t *testing.T) {
	doc, err := bson.Marshal(bson.D{})
	require.NoError(t, err)

	row := Row(doc, []string{"_id", "a", "b"})
	assert.Equal(t, []any{nil, nil, nil}, row)
}
