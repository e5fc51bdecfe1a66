package frozen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
	"github.com/AntonStoeckl/frozen-objects-go/testutil/frozen/fixtures"
)

func givenFrozenNested(t *testing.T) *frozen.Node {
	node, err := frozen.Freeze(
		fixtures.GivenNestedRecord(t, 1, fixtures.GivenFlatRecord(t, 2), nil),
		frozen.Selection{SelectRelated: frozen.AttributeList{"fresh"}},
		frozen.WithClock(fixtures.FixedClock()),
	)
	require.NoError(t, err, "error in arranging test data")

	return node
}

func Test_Node_RejectsWritesAndSaves(t *testing.T) {
	// arrange
	payload, err := frozen.Encode(givenFrozenNested(t))
	require.NoError(t, err)
	node, err := frozen.UnfreezeJSON(payload, nil)
	require.NoError(t, err)

	// act
	setErr := node.Set("id", 2)
	setUnknownErr := node.Set("anything", 2)
	saveErr := node.Save(context.Background())

	// assert
	assert.ErrorIs(t, setErr, frozen.ErrFrozenValueImmutable)
	assert.ErrorIs(t, setUnknownErr, frozen.ErrFrozenValueImmutable)
	assert.ErrorIs(t, saveErr, frozen.ErrStaleObject)
	assert.NotErrorIs(t, saveErr, frozen.ErrFrozenValueImmutable)
	assert.NotErrorIs(t, setErr, frozen.ErrStaleObject)
}

func Test_CheckPersistable(t *testing.T) {
	// arrange
	live := fixtures.GivenFlatRecord(t, 1)
	node := givenFrozenNested(t)
	var nilNode *frozen.Node

	// assert
	assert.NoError(t, frozen.CheckPersistable(live))
	assert.ErrorIs(t, frozen.CheckPersistable(node), frozen.ErrStaleObject)
	assert.ErrorIs(t, frozen.CheckPersistable(nilNode), frozen.ErrStaleObject)
}

func Test_Node_ReadAccess(t *testing.T) {
	// arrange
	node := givenFrozenNested(t)

	t.Run("captured_scalar", func(t *testing.T) {
		value, err := node.Get("id")

		require.NoError(t, err)
		assert.Equal(t, int64(1), value)
	})

	t.Run("unknown_attribute", func(t *testing.T) {
		fresh, err := node.Related("fresh")
		require.NoError(t, err)

		_, err = fresh.Get("missing")
		assert.ErrorIs(t, err, frozen.ErrUnknownAttribute)
	})

	t.Run("related_on_scalar", func(t *testing.T) {
		_, err := node.Related("id")

		assert.ErrorIs(t, err, frozen.ErrNotNested)
	})

	t.Run("as_object", func(t *testing.T) {
		var obj frozen.Object = node

		assert.Equal(t, fixtures.NestedModelName, obj.Schema().Model)
		assert.Equal(t, frozen.AttributeList{"fresh", "frozen", "id"}, obj.Schema().Names())
		assert.NoError(t, obj.Schema().Validate())
	})

	t.Run("type_name", func(t *testing.T) {
		assert.Equal(t, "FrozenNestedModel", node.TypeName())
		assert.Equal(t, "FrozenNestedModel[fresh frozen id]", node.String())
	})
}

func Test_Node_ExcludedAttribute_WithoutSchema(t *testing.T) {
	// arrange
	node, err := frozen.Unfreeze(map[string]any{
		"meta": givenRawMeta("M", map[string]any{"id": "int"}),
		"id":   1,
	}, nil)
	require.NoError(t, err)

	// act
	_, err = node.Get("name")

	// assert
	assert.ErrorIs(t, err, frozen.ErrAttributeExcluded)
}

func Test_Node_Equal_IgnoresFrozenAt(t *testing.T) {
	// arrange
	record := fixtures.GivenFlatRecord(t, 1)
	first, err := frozen.Freeze(record, frozen.Selection{})
	require.NoError(t, err)
	second, err := frozen.Freeze(record, frozen.Selection{}, frozen.WithClock(fixtures.FixedClock()))
	require.NoError(t, err)
	other, err := frozen.Freeze(fixtures.GivenFlatRecord(t, 2), frozen.Selection{})
	require.NoError(t, err)
	narrower, err := frozen.Freeze(record, frozen.Selection{Exclude: frozen.AttributeList{"field_json"}})
	require.NoError(t, err)

	// assert
	assert.NotEqual(t, first.Meta().FrozenAt(), second.Meta().FrozenAt())
	assert.True(t, first.Equal(second))
	assert.False(t, first.Equal(other))
	assert.False(t, first.Equal(narrower))
	assert.False(t, first.Equal(nil))
}

func Test_Node_Data(t *testing.T) {
	// arrange
	node := givenFrozenNested(t)

	// act
	data := node.Data()

	// assert
	assert.NotContains(t, data, "meta")
	assert.Equal(t, int64(1), data["id"])
	assert.Nil(t, data["frozen"])

	fresh, ok := data["fresh"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, fresh, "meta")
	assert.Equal(t, "This is some text", fresh["field_str"])
}

func Test_Node_Tree(t *testing.T) {
	// arrange
	node := givenFrozenNested(t)

	// act
	tree := node.Tree()

	// assert
	require.True(t, frozen.HasMeta(tree))
	meta := tree["meta"].(map[string]any)
	assert.Equal(t, fixtures.NestedModelName, meta["model"])
	assert.Equal(t, "2021-06-04T18:10:30.549Z", meta["frozen_at"])
	assert.Equal(t, map[string]any{"id": "int", "frozen": "frozen", "fresh": "foreign_key"}, meta["fields"])
	assert.True(t, frozen.HasMeta(tree["fresh"]))
}
