package frozen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
	"github.com/AntonStoeckl/frozen-objects-go/testutil/frozen/fixtures"
)

func Test_Schema_Validate(t *testing.T) {
	tests := []struct {
		name        string
		schema      frozen.Schema
		expectedErr error
	}{
		{
			name:   "valid",
			schema: fixtures.NestedSchema(),
		},
		{
			name:        "missing_model",
			schema:      frozen.Schema{Attributes: []frozen.AttributeDescriptor{{Name: "id", TypeTag: frozen.TagInt}}},
			expectedErr: frozen.ErrInvalidSchema,
		},
		{
			name:        "missing_type_tag",
			schema:      frozen.Schema{Model: "M", Attributes: []frozen.AttributeDescriptor{{Name: "id"}}},
			expectedErr: frozen.ErrInvalidSchema,
		},
		{
			name:        "chained_attribute_name",
			schema:      frozen.Schema{Model: "M", Attributes: []frozen.AttributeDescriptor{{Name: "a__b", TypeTag: frozen.TagInt}}},
			expectedErr: frozen.ErrInvalidSchema,
		},
		{
			name:        "reserved_attribute_name",
			schema:      frozen.Schema{Model: "M", Attributes: []frozen.AttributeDescriptor{{Name: "meta", TypeTag: frozen.TagJSON}}},
			expectedErr: frozen.ErrReservedAttributeName,
		},
		{
			name: "duplicate_attribute",
			schema: frozen.Schema{Model: "M", Attributes: []frozen.AttributeDescriptor{
				{Name: "id", TypeTag: frozen.TagInt},
				{Name: "id", TypeTag: frozen.TagText},
			}},
			expectedErr: frozen.ErrInvalidSchema,
		},
		{
			name: "relation_flag_contradicts_tag",
			schema: frozen.Schema{Model: "M", Attributes: []frozen.AttributeDescriptor{
				{Name: "owner", TypeTag: frozen.TagForeignKey},
			}},
			expectedErr: frozen.ErrInvalidSchema,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.schema.Validate()

			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_Record(t *testing.T) {
	// arrange
	record := fixtures.GivenFlatRecord(t, 1)

	t.Run("reads_attributes_and_properties", func(t *testing.T) {
		id, err := record.Value("id")
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)

		isBool, err := record.Value("is_bool")
		require.NoError(t, err)
		assert.Equal(t, true, isBool)
	})

	t.Run("unknown_attribute", func(t *testing.T) {
		_, err := record.Value("nope")
		assert.ErrorIs(t, err, frozen.ErrUnknownAttribute)

		assert.ErrorIs(t, record.Set("nope", 1), frozen.ErrUnknownAttribute)
	})

	t.Run("relation_needs_an_object", func(t *testing.T) {
		nested := fixtures.GivenNestedRecord(t, 1, nil, nil)

		assert.ErrorIs(t, nested.Set("fresh", "x"), frozen.ErrUnsupportedValue)
		assert.NoError(t, nested.Set("fresh", record))
		assert.NoError(t, nested.Set("fresh", nil))
	})

	t.Run("property_cannot_shadow_attribute", func(t *testing.T) {
		_, err := frozen.NewRecord(fixtures.FlatSchema(), nil, frozen.WithProperty("id", func() any { return 1 }))

		assert.ErrorIs(t, err, frozen.ErrInvalidOption)
	})
}

func Test_SchemaRegistry(t *testing.T) {
	// arrange
	registry := fixtures.Schemas(t)

	// act
	schema, found := registry.SchemaFor(fixtures.FlatModelName)
	_, missing := registry.SchemaFor("tests.Unknown")

	// assert
	assert.True(t, found)
	assert.Equal(t, fixtures.FlatModelName, schema.Model)
	assert.False(t, missing)

	_, err := frozen.NewSchemaRegistry(frozen.Schema{})
	assert.ErrorIs(t, err, frozen.ErrInvalidSchema)
}
