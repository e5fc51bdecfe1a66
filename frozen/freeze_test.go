package frozen_test

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
	"github.com/AntonStoeckl/frozen-objects-go/testutil/frozen/fixtures"
	"github.com/AntonStoeckl/frozen-objects-go/testutil/frozen/observability"
)

func givenSimpleRecord(t *testing.T) *frozen.Record {
	record, err := frozen.NewRecord(
		frozen.Schema{
			Model: "M",
			Attributes: []frozen.AttributeDescriptor{
				{Name: "id", TypeTag: frozen.TagInt},
				{Name: "n", TypeTag: frozen.TagInt},
				{Name: "s", TypeTag: frozen.TagText},
			},
		},
		map[string]any{"id": 1, "n": 999, "s": "x"},
	)
	require.NoError(t, err, "error in arranging test data")

	return record
}

func Test_Freeze_FlatObject_NoSelection(t *testing.T) {
	// arrange
	record := givenSimpleRecord(t)

	// act
	node, err := frozen.Freeze(record, frozen.Selection{})

	// assert
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "M", node.Meta().Model())
	assert.Equal(
		t,
		map[string]string{"id": frozen.TagInt, "n": frozen.TagInt, "s": frozen.TagText},
		node.Meta().Fields(),
	)
	assert.Empty(t, node.Meta().Properties())

	for name, expected := range map[string]any{"id": int64(1), "n": int64(999), "s": "x"} {
		value, getErr := node.Get(name)
		require.NoError(t, getErr)
		assert.Equal(t, expected, value)
	}
}

func Test_Freeze_NilRoot(t *testing.T) {
	var record *frozen.Record

	node, err := frozen.Freeze(record, frozen.Selection{Include: frozen.AttributeList{"id"}})

	assert.NoError(t, err)
	assert.Nil(t, node)
}

func Test_Freeze_IncludeAndExclude_Conflict(t *testing.T) {
	_, err := frozen.Freeze(givenSimpleRecord(t), frozen.Selection{
		Include: frozen.AttributeList{"a"},
		Exclude: frozen.AttributeList{"b"},
	})

	assert.ErrorIs(t, err, frozen.ErrConflictingSelection)
}

func Test_Freeze_UsesClock(t *testing.T) {
	node, err := frozen.Freeze(givenSimpleRecord(t), frozen.Selection{}, frozen.WithClock(fixtures.FixedClock()))

	require.NoError(t, err)
	assert.Equal(t, fixtures.FrozenAt, node.Meta().FrozenAt())
}

func Test_Freeze_SelectProperties(t *testing.T) {
	// arrange
	record := fixtures.GivenFlatRecord(t, 1)

	// act
	node, err := frozen.Freeze(record, frozen.Selection{
		Include:          frozen.AttributeList{"id"},
		SelectProperties: frozen.AttributeList{"is_bool", "today"},
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, frozen.AttributeList{"id", "is_bool", "today"}, node.Attrs())
	assert.Equal(t, frozen.AttributeList{"is_bool", "today"}, node.Meta().Properties())

	isBool, err := node.Get("is_bool")
	require.NoError(t, err)
	assert.Equal(t, true, isBool)

	today, err := node.Get("today")
	require.NoError(t, err)
	assert.Equal(t, fixtures.Today(), today)
}

func Test_Freeze_DottedPathChaining(t *testing.T) {
	// arrange
	flat := fixtures.GivenFlatRecord(t, 2)
	nested := fixtures.GivenNestedRecord(t, 1, flat, nil)

	// act
	node, err := frozen.Freeze(nested, frozen.Selection{
		Include: frozen.AttributeList{"fresh__field_int"},
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, frozen.AttributeList{"fresh"}, node.Attrs())

	fresh, err := node.Related("fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, frozen.AttributeList{"field_int"}, fresh.Attrs())

	value, err := fresh.Get("field_int")
	require.NoError(t, err)
	assert.Equal(t, int64(999), value)

	_, err = fresh.Get("field_str")
	assert.ErrorIs(t, err, frozen.ErrAttributeExcluded)
}

func Test_Freeze_SelectRelated_NullRelation(t *testing.T) {
	// arrange
	nested := fixtures.GivenNestedRecord(t, 1, nil, nil)

	// act
	node, err := frozen.Freeze(nested, frozen.Selection{SelectRelated: frozen.AttributeList{"fresh"}})

	// assert
	require.NoError(t, err)
	fresh, err := node.Related("fresh")
	require.NoError(t, err)
	assert.Nil(t, fresh)
}

func Test_Freeze_AlreadyFrozenValue(t *testing.T) {
	// arrange
	snapshot, err := frozen.Freeze(fixtures.GivenFlatRecord(t, 2), frozen.Selection{Include: frozen.AttributeList{"id"}})
	require.NoError(t, err)
	nested := fixtures.GivenNestedRecord(t, 1, nil, snapshot)

	t.Run("is_passed_through_with_empty_derived_selection", func(t *testing.T) {
		node, freezeErr := frozen.Freeze(nested, frozen.Selection{})

		require.NoError(t, freezeErr)
		related, relatedErr := node.Related("frozen")
		require.NoError(t, relatedErr)
		assert.Same(t, snapshot, related)
		assert.True(t, node.Meta().IsFrozen("frozen"))
	})

	t.Run("cannot_be_rescoped", func(t *testing.T) {
		_, freezeErr := frozen.Freeze(nested, frozen.Selection{Include: frozen.AttributeList{"id", "frozen__id"}})

		assert.ErrorIs(t, freezeErr, frozen.ErrCannotRescopeFrozenValue)
	})
}

func Test_Freeze_RootSnapshot(t *testing.T) {
	// arrange
	snapshot, err := frozen.Freeze(givenSimpleRecord(t), frozen.Selection{})
	require.NoError(t, err)

	// act
	same, err := frozen.Freeze(snapshot, frozen.Selection{})
	require.NoError(t, err)
	_, rescopeErr := frozen.Freeze(snapshot, frozen.Selection{Include: frozen.AttributeList{"id"}})

	// assert
	assert.Same(t, snapshot, same)
	assert.ErrorIs(t, rescopeErr, frozen.ErrCannotRescopeFrozenValue)
}

func Test_Freeze_CycleDetected(t *testing.T) {
	// arrange
	schema := frozen.Schema{
		Model: "tree.Node",
		Attributes: []frozen.AttributeDescriptor{
			{Name: "id", TypeTag: frozen.TagInt},
			{Name: "parent", TypeTag: frozen.TagForeignKey, IsRelation: true},
		},
	}
	a, err := frozen.NewRecord(schema, map[string]any{"id": 1})
	require.NoError(t, err)
	b, err := frozen.NewRecord(schema, map[string]any{"id": 2, "parent": a})
	require.NoError(t, err)
	require.NoError(t, a.Set("parent", b))

	// act
	_, err = frozen.Freeze(a, frozen.Selection{
		SelectRelated: frozen.AttributeList{"parent", "parent__parent"},
	})

	// assert
	assert.ErrorIs(t, err, frozen.ErrCycleDetected)
}

func Test_Freeze_MaxDepthExceeded(t *testing.T) {
	// arrange
	flat := fixtures.GivenFlatRecord(t, 3)
	nested := fixtures.GivenNestedRecord(t, 2, flat, nil)
	deep := fixtures.GivenDeepNestedRecord(t, 1, nested, nil)
	selection := frozen.Selection{SelectRelated: frozen.AttributeList{"fresh", "fresh__fresh"}}

	// act
	_, err := frozen.Freeze(deep, selection, frozen.WithMaxDepth(2))
	node, okErr := frozen.Freeze(deep, selection, frozen.WithMaxDepth(3))

	// assert
	assert.ErrorIs(t, err, frozen.ErrMaxDepthExceeded)
	assert.NoError(t, okErr)
	assert.NotNil(t, node)
}

func Test_Freeze_RejectsInvalidValues(t *testing.T) {
	schema := frozen.Schema{
		Model: "M",
		Attributes: []frozen.AttributeDescriptor{
			{Name: "id", TypeTag: frozen.TagInt},
			{Name: "snapshot", TypeTag: frozen.TagFrozen},
			{Name: "amount", TypeTag: "money"},
		},
	}

	t.Run("frozen_attribute_with_live_value", func(t *testing.T) {
		record, err := frozen.NewRecord(schema, map[string]any{"snapshot": "x"})
		require.NoError(t, err)

		_, err = frozen.Freeze(record, frozen.Selection{Include: frozen.AttributeList{"snapshot"}})

		assert.ErrorIs(t, err, frozen.ErrUnsupportedValue)
	})

	t.Run("scalar_attribute_with_object", func(t *testing.T) {
		record, err := frozen.NewRecord(schema, map[string]any{"id": givenSimpleRecord(t)})
		require.NoError(t, err)

		_, err = frozen.Freeze(record, frozen.Selection{Include: frozen.AttributeList{"id"}})

		assert.ErrorIs(t, err, frozen.ErrUnsupportedValue)
	})

	t.Run("unresolvable_type_tag", func(t *testing.T) {
		record, err := frozen.NewRecord(schema, map[string]any{"amount": 12})
		require.NoError(t, err)

		_, err = frozen.Freeze(record, frozen.Selection{Include: frozen.AttributeList{"amount"}})

		assert.ErrorIs(t, err, frozen.ErrUnresolvableTypeTag)
	})

	t.Run("property_shadowing_an_attribute", func(t *testing.T) {
		_, err := frozen.Freeze(givenSimpleRecord(t), frozen.Selection{SelectProperties: frozen.AttributeList{"n"}})

		assert.ErrorIs(t, err, frozen.ErrUnsupportedValue)
	})

	t.Run("unknown_property", func(t *testing.T) {
		_, err := frozen.Freeze(givenSimpleRecord(t), frozen.Selection{SelectProperties: frozen.AttributeList{"missing"}})

		assert.ErrorIs(t, err, frozen.ErrUnknownAttribute)
	})
}

func Test_Freeze_DoesNotAliasLiveValues(t *testing.T) {
	// arrange
	record := fixtures.GivenFlatRecord(t, 1)
	node, err := frozen.Freeze(record, frozen.Selection{})
	require.NoError(t, err)

	// act
	live, err := record.Value("field_json")
	require.NoError(t, err)
	live.(map[string]any)["foo"] = "changed"

	read, err := node.Get("field_json")
	require.NoError(t, err)
	read.(map[string]any)["foo"] = "changed too"

	// assert
	value, err := node.Get("field_json")
	require.NoError(t, err)
	assert.Equal(t, "bar", value.(map[string]any)["foo"])
}

func Test_Freeze_DoesNotAliasTypedContainers(t *testing.T) {
	// arrange
	note := "checked"
	names := []string{"a", "b"}
	counts := map[string]int{"a": 1}
	record, err := frozen.NewRecord(
		frozen.Schema{
			Model: "M",
			Attributes: []frozen.AttributeDescriptor{
				{Name: "note", TypeTag: frozen.TagText},
			},
		},
		map[string]any{"note": &note},
		frozen.WithProperty("names", func() any { return names }),
		frozen.WithProperty("counts", func() any { return counts }),
	)
	require.NoError(t, err, "error in arranging test data")

	node, err := frozen.Freeze(record, frozen.Selection{SelectProperties: frozen.AttributeList{"names", "counts"}})
	require.NoError(t, err)

	// act
	note = "mutated"
	names[0] = "mutated"
	counts["a"] = 99

	// assert
	frozenNote, err := node.Get("note")
	require.NoError(t, err)
	assert.Equal(t, "checked", frozenNote)

	frozenNames, err := node.Get("names")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, frozenNames)

	frozenCounts, err := node.Get("counts")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": json.Number("1")}, frozenCounts)
}

func Test_Freeze_RejectsUnencodableProperty(t *testing.T) {
	// arrange
	record, err := frozen.NewRecord(
		frozen.Schema{Model: "M", Attributes: []frozen.AttributeDescriptor{{Name: "id", TypeTag: frozen.TagInt}}},
		map[string]any{"id": 1},
		frozen.WithProperty("events", func() any { return make(chan int) }),
	)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = frozen.Freeze(record, frozen.Selection{SelectProperties: frozen.AttributeList{"events"}})

	// assert
	assert.ErrorIs(t, err, frozen.ErrUnsupportedValue)
}

func Test_Freeze_Logging(t *testing.T) {
	// arrange
	handler := observability.NewTestLogHandler(false)
	logger := slog.New(handler)

	// act
	_, err := frozen.Freeze(givenSimpleRecord(t), frozen.Selection{}, frozen.WithLogger(logger))
	require.NoError(t, err)
	_, conflictErr := frozen.Freeze(
		fixtures.GivenNestedRecord(t, 1, nil, nil),
		frozen.Selection{SelectProperties: frozen.AttributeList{"missing"}},
		frozen.WithLogger(logger),
	)

	// assert
	assert.Error(t, conflictErr)
	assert.True(t, handler.HasDebugLogWithMessage("node frozen").WithAttribute("model", "M").Assert())
	assert.True(t, handler.HasErrorLogWithMessage("freezing failed").WithErrorAttribute().Assert())
}

func Test_NewFreezer_InvalidOptions(t *testing.T) {
	_, err := frozen.NewFreezer(frozen.WithMaxDepth(0))
	assert.ErrorIs(t, err, frozen.ErrInvalidOption)

	_, err = frozen.NewFreezer(frozen.WithClock(nil))
	assert.ErrorIs(t, err, frozen.ErrInvalidOption)

	_, err = frozen.NewFreezer(frozen.WithTypeRegistry(frozen.TypeRegistry{}))
	assert.ErrorIs(t, err, frozen.ErrInvalidOption)
}
