package frozen_test

import (
	"errors"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
	"github.com/AntonStoeckl/frozen-objects-go/testutil/frozen/fixtures"
)

func givenRawMeta(model string, fields map[string]any, properties ...any) map[string]any {
	meta := map[string]any{
		"model":     model,
		"fields":    fields,
		"frozen_at": "2021-01-01T00:00:00Z",
	}
	if len(properties) > 0 {
		meta["properties"] = properties
	}

	return meta
}

func Test_Unfreeze_CastsByTypeTag(t *testing.T) {
	// arrange
	raw := map[string]any{
		"meta": givenRawMeta("M", map[string]any{"id": "int"}),
		"id":   "42",
	}

	// act
	node, err := frozen.Unfreeze(raw, nil)

	// assert
	require.NoError(t, err)
	id, err := node.Get("id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "2021-01-01T00:00:00.000Z", strfmt.DateTime(node.Meta().FrozenAt()).String())
}

func Test_Unfreeze_EmptyTree(t *testing.T) {
	node, err := frozen.Unfreeze(nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, node)

	node, err = frozen.Unfreeze(map[string]any{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, node)
}

func Test_Unfreeze_Failures(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		expectedErr error
	}{
		{
			name:        "missing_metadata",
			raw:         map[string]any{"id": 1},
			expectedErr: frozen.ErrMissingMetadata,
		},
		{
			name:        "malformed_metadata",
			raw:         map[string]any{"meta": "M", "id": 1},
			expectedErr: frozen.ErrMalformedMetadata,
		},
		{
			name: "unresolvable_type_tag",
			raw: map[string]any{
				"meta":  givenRawMeta("M", map[string]any{"price": "money"}),
				"price": "1.00",
			},
			expectedErr: frozen.ErrUnresolvableTypeTag,
		},
		{
			name: "key_without_type_tag",
			raw: map[string]any{
				"meta":  givenRawMeta("M", map[string]any{"id": "int"}),
				"id":    1,
				"extra": "x",
			},
			expectedErr: frozen.ErrUnresolvableTypeTag,
		},
		{
			name: "cast_failure",
			raw: map[string]any{
				"meta": givenRawMeta("M", map[string]any{"uid": "uuid"}),
				"uid":  "not-a-uuid",
			},
			expectedErr: frozen.ErrCastFailed,
		},
		{
			name: "missing_captured_value",
			raw: map[string]any{
				"meta": givenRawMeta("M", map[string]any{"id": "int", "name": "text"}),
				"id":   1,
			},
			expectedErr: frozen.ErrMissingAttributeValue,
		},
		{
			name: "relation_without_metadata",
			raw: map[string]any{
				"meta":  givenRawMeta("M", map[string]any{"owner": "foreign_key"}),
				"owner": map[string]any{"id": 1},
			},
			expectedErr: frozen.ErrMissingMetadata,
		},
		{
			name: "relation_holding_a_scalar",
			raw: map[string]any{
				"meta":  givenRawMeta("M", map[string]any{"owner": "foreign_key"}),
				"owner": 12,
			},
			expectedErr: frozen.ErrMissingMetadata,
		},
		{
			name: "fault_in_nested_node",
			raw: map[string]any{
				"meta": givenRawMeta("M", map[string]any{"owner": "one_to_one"}),
				"owner": map[string]any{
					"meta": givenRawMeta("O", map[string]any{"id": "int"}),
					"id":   "twelve",
				},
			},
			expectedErr: frozen.ErrCastFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			node, err := frozen.Unfreeze(tc.raw, nil)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Nil(t, node)
		})
	}
}

func Test_Unfreeze_NullValues(t *testing.T) {
	// arrange
	raw := map[string]any{
		"meta":  givenRawMeta("M", map[string]any{"id": "int", "owner": "foreign_key", "since": "date"}),
		"id":    nil,
		"owner": nil,
		"since": nil,
	}

	// act
	node, err := frozen.Unfreeze(raw, nil)

	// assert
	require.NoError(t, err)
	for _, name := range []string{"id", "owner", "since"} {
		value, getErr := node.Get(name)
		require.NoError(t, getErr)
		assert.Nil(t, value)
	}
}

func Test_Unfreeze_EmptyNestedTree(t *testing.T) {
	// arrange
	raw := map[string]any{
		"meta":  givenRawMeta("M", map[string]any{"id": "int", "owner": "foreign_key"}),
		"id":    1,
		"owner": map[string]any{},
	}

	// act
	node, err := frozen.Unfreeze(raw, nil)

	// assert
	require.NoError(t, err)
	owner, err := node.Related("owner")
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func Test_Unfreeze_Converters(t *testing.T) {
	// arrange
	raw := map[string]any{
		"meta": givenRawMeta(
			"M",
			map[string]any{"id": "int", "child": "foreign_key"},
			"today",
			"label",
		),
		"id":    "1",
		"today": "2021-06-04",
		"label": "as is",
		"child": map[string]any{
			"meta":  givenRawMeta("C", map[string]any{}, "today"),
			"today": "2021-06-05",
		},
	}
	converters := frozen.ConverterMap{
		"today":        fixtures.ToDate,
		"child__today": fixtures.ToDate,
		"id": func(raw any) (any, error) {
			return "converted " + raw.(string), nil
		},
	}

	// act
	node, err := frozen.Unfreeze(raw, converters)

	// assert
	require.NoError(t, err)

	id, err := node.Get("id")
	require.NoError(t, err)
	assert.Equal(t, "converted 1", id)

	today, err := node.Get("today")
	require.NoError(t, err)
	assert.Equal(t, fixtures.Today(), today)

	label, err := node.Get("label")
	require.NoError(t, err)
	assert.Equal(t, "as is", label)

	child, err := node.Related("child")
	require.NoError(t, err)
	childToday, err := child.Get("today")
	require.NoError(t, err)
	assert.IsType(t, strfmt.Date{}, childToday)
}

func Test_Unfreeze_ConverterFailure(t *testing.T) {
	// arrange
	errBoom := errors.New("boom")
	raw := map[string]any{
		"meta": givenRawMeta("M", map[string]any{"id": "int"}),
		"id":   "1",
	}

	// act
	_, err := frozen.Unfreeze(raw, frozen.ConverterMap{
		"id": func(any) (any, error) { return nil, errBoom },
	})

	// assert
	assert.ErrorIs(t, err, frozen.ErrCastFailed)
	assert.ErrorIs(t, err, errBoom)
}

func Test_Unfreeze_DoesNotModifyInput(t *testing.T) {
	// arrange
	payload := map[string]any{"k": []any{"v"}}
	raw := map[string]any{
		"meta":    givenRawMeta("M", map[string]any{"id": "int"}, "payload"),
		"id":      "7",
		"payload": payload,
	}

	// act
	node, err := frozen.Unfreeze(raw, nil)
	require.NoError(t, err)
	payload["k"] = "changed"

	// assert
	assert.Equal(t, "7", raw["id"])
	assert.Contains(t, raw, "meta")
	value, err := node.Get("payload")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": []any{"v"}}, value)
}

func Test_Unfreeze_MaxDepthExceeded(t *testing.T) {
	// arrange
	raw := map[string]any{
		"meta": givenRawMeta("A", map[string]any{"b": "foreign_key"}),
		"b": map[string]any{
			"meta": givenRawMeta("B", map[string]any{"c": "foreign_key"}),
			"c": map[string]any{
				"meta": givenRawMeta("C", map[string]any{}),
			},
		},
	}

	// act
	_, err := frozen.Unfreeze(raw, nil, frozen.WithMaxDepth(2))
	node, okErr := frozen.Unfreeze(raw, nil, frozen.WithMaxDepth(3))

	// assert
	assert.ErrorIs(t, err, frozen.ErrMaxDepthExceeded)
	assert.NoError(t, okErr)
	assert.NotNil(t, node)
}

func Test_Unfreeze_WithSchemaProvider(t *testing.T) {
	// arrange
	raw := map[string]any{
		"meta":      givenRawMeta(fixtures.FlatModelName, map[string]any{"field_int": "int"}),
		"field_int": "5",
	}

	// act
	node, err := frozen.Unfreeze(raw, nil, frozen.WithSchemaProvider(fixtures.Schemas(t)))
	require.NoError(t, err)

	// assert
	_, err = node.Get("field_str")
	assert.ErrorIs(t, err, frozen.ErrAttributeExcluded)
	_, err = node.Get("no_such_field")
	assert.ErrorIs(t, err, frozen.ErrUnknownAttribute)
}
