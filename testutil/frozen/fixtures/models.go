package fixtures

import (
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
)

const (
	FlatModelName       frozen.ModelName = "tests.FlatModel"
	NestedModelName     frozen.ModelName = "tests.NestedModel"
	DeepNestedModelName frozen.ModelName = "tests.DeepNestedModel"
)

// FrozenAt is a fixed capture time for deterministic tests.
var FrozenAt = time.Date(2021, 6, 4, 18, 10, 30, 549000000, time.UTC)

// FixedClock returns a clock always reporting FrozenAt.
func FixedClock() func() time.Time {
	return func() time.Time { return FrozenAt }
}

func FlatSchema() frozen.Schema {
	return frozen.Schema{
		Model: FlatModelName,
		Attributes: []frozen.AttributeDescriptor{
			{Name: "id", TypeTag: frozen.TagInt},
			{Name: "field_int", TypeTag: frozen.TagInt},
			{Name: "field_str", TypeTag: frozen.TagText},
			{Name: "field_bool", TypeTag: frozen.TagBool},
			{Name: "field_date", TypeTag: frozen.TagDate},
			{Name: "field_datetime", TypeTag: frozen.TagDateTime},
			{Name: "field_decimal", TypeTag: frozen.TagDecimal},
			{Name: "field_float", TypeTag: frozen.TagFloat},
			{Name: "field_uuid", TypeTag: frozen.TagUUID},
			{Name: "field_json", TypeTag: frozen.TagJSON},
		},
	}
}

func NestedSchema() frozen.Schema {
	return frozen.Schema{
		Model: NestedModelName,
		Attributes: []frozen.AttributeDescriptor{
			{Name: "id", TypeTag: frozen.TagInt},
			{Name: "frozen", TypeTag: frozen.TagFrozen},
			{Name: "fresh", TypeTag: frozen.TagForeignKey, IsRelation: true},
		},
	}
}

func DeepNestedSchema() frozen.Schema {
	return frozen.Schema{
		Model: DeepNestedModelName,
		Attributes: []frozen.AttributeDescriptor{
			{Name: "id", TypeTag: frozen.TagInt},
			{Name: "frozen", TypeTag: frozen.TagFrozen},
			{Name: "fresh", TypeTag: frozen.TagForeignKey, IsRelation: true},
		},
	}
}

// Schemas returns a provider knowing all fixture models.
func Schemas(t testing.TB) frozen.SchemaRegistry {
	registry, err := frozen.NewSchemaRegistry(FlatSchema(), NestedSchema(), DeepNestedSchema())
	require.NoError(t, err, "error in arranging test data")

	return registry
}

// Today is the value of the "today" property of every flat record.
func Today() strfmt.Date {
	return strfmt.Date(time.Date(2021, 6, 4, 0, 0, 0, 0, time.UTC))
}

// FlatValues returns the attribute values of a populated flat record.
func FlatValues(id int64) map[frozen.AttributeName]any {
	return map[frozen.AttributeName]any{
		"id":             id,
		"field_int":      int64(999),
		"field_str":      "This is some text",
		"field_bool":     true,
		"field_date":     strfmt.Date(time.Date(2021, 6, 4, 0, 0, 0, 0, time.UTC)),
		"field_datetime": time.Date(2021, 6, 4, 18, 10, 30, 549000000, time.UTC),
		"field_decimal":  decimal.RequireFromString("3.142"),
		"field_float":    1.23,
		"field_uuid":     uuid.MustParse("6f09c4a9-e8a3-4bd3-9e66-05a8e02ab0b8"),
		"field_json":     map[string]any{"foo": "bar", "count": 2.0},
	}
}

// GivenFlatRecord creates a flat record with the "is_bool" and "today" properties.
func GivenFlatRecord(t testing.TB, id int64) *frozen.Record {
	record, err := frozen.NewRecord(
		FlatSchema(),
		FlatValues(id),
		frozen.WithProperty("is_bool", func() any { return true }),
		frozen.WithProperty("today", func() any { return Today() }),
	)
	require.NoError(t, err, "error in arranging test data")

	return record
}

// GivenNestedRecord creates a nested record with a live flat record in "fresh" and the given snapshot in "frozen".
func GivenNestedRecord(t testing.TB, id int64, fresh *frozen.Record, snapshot *frozen.Node) *frozen.Record {
	values := map[frozen.AttributeName]any{"id": id, "frozen": nil, "fresh": nil}
	if fresh != nil {
		values["fresh"] = fresh
	}
	if snapshot != nil {
		values["frozen"] = snapshot
	}

	record, err := frozen.NewRecord(NestedSchema(), values)
	require.NoError(t, err, "error in arranging test data")

	return record
}

// GivenDeepNestedRecord creates a deep nested record with a live nested record in "fresh" and the given snapshot in "frozen".
func GivenDeepNestedRecord(t testing.TB, id int64, fresh *frozen.Record, snapshot *frozen.Node) *frozen.Record {
	values := map[frozen.AttributeName]any{"id": id, "frozen": nil, "fresh": nil}
	if fresh != nil {
		values["fresh"] = fresh
	}
	if snapshot != nil {
		values["frozen"] = snapshot
	}

	record, err := frozen.NewRecord(DeepNestedSchema(), values)
	require.NoError(t, err, "error in arranging test data")

	return record
}

// ToDate is the converter used for the "today" property, mirroring a strict date parser.
func ToDate(raw any) (any, error) {
	s, _ := raw.(string)

	var date strfmt.Date
	if err := date.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}

	return date, nil
}
