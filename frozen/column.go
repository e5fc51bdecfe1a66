package frozen

import (
	"bytes"
	"errors"
	"fmt"
)

// Column freezes the objects of one model for storage in a single payload column, and turns stored
// payloads back into Nodes. It pairs a ColumnSpec with the engines and converters used for it.
type Column struct {
	spec          ColumnSpec
	converters    ConverterMap
	engineOptions []Option
	freezer       Freezer
	unfreezer     Unfreezer
}

// ColumnOption defines a functional option for configuring a Column.
type ColumnOption func(*Column) error

// WithConverters sets the converters applied when payloads are unfrozen.
func WithConverters(converters ConverterMap) ColumnOption {
	return func(c *Column) error {
		for name, fn := range converters {
			if name == "" || fn == nil {
				return errors.Join(ErrInvalidOption, fmt.Errorf("converter %q", name))
			}
		}

		c.converters = converters

		return nil
	}
}

// WithEngineOptions passes options to the Freezer and Unfreezer of the column.
// A MaxDepth in the ColumnSpec takes precedence over WithMaxDepth.
func WithEngineOptions(options ...Option) ColumnOption {
	return func(c *Column) error {
		c.engineOptions = append(c.engineOptions, options...)
		return nil
	}
}

// NewColumn validates spec and builds the column.
func NewColumn(spec ColumnSpec, options ...ColumnOption) (Column, error) {
	if err := spec.Validate(); err != nil {
		return Column{}, err
	}

	c := Column{spec: spec}
	for _, option := range options {
		if err := option(&c); err != nil {
			return Column{}, err
		}
	}

	engineOptions := c.engineOptions
	if spec.MaxDepth > 0 {
		engineOptions = append(engineOptions, WithMaxDepth(spec.MaxDepth))
	}

	var err error
	if c.freezer, err = NewFreezer(engineOptions...); err != nil {
		return Column{}, err
	}

	if c.unfreezer, err = NewUnfreezer(engineOptions...); err != nil {
		return Column{}, err
	}

	return c, nil
}

// Spec returns the ColumnSpec the column was built from.
func (c Column) Spec() ColumnSpec {
	return c.spec
}

// Freeze captures obj with the selection of the column.
//
// The object must be of the source model. An already frozen *Node of that model is accepted unchanged,
// as it was captured under its own selection.
func (c Column) Freeze(obj Object) (*Node, error) {
	if isNil(obj) {
		return nil, nil
	}

	if model := obj.Schema().Model; model != c.spec.SourceModel {
		return nil, errors.Join(ErrModelMismatch, fmt.Errorf("column %s expects %s, got %s", c.spec.Name, c.spec.SourceModel, model))
	}

	if node, ok := obj.(*Node); ok {
		return node, nil
	}

	return c.freezer.Freeze(obj, c.spec.Selection)
}

// FreezeValue is Freeze for values of unknown type. Raw trees are rejected: they must go through FromDBValue.
func (c Column) FreezeValue(value any) (*Node, error) {
	if isNil(value) {
		return nil, nil
	}

	obj, ok := value.(Object)
	if !ok {
		return nil, errors.Join(ErrUnsupportedValue, fmt.Errorf("column %s: cannot freeze %T", c.spec.Name, value))
	}

	return c.Freeze(obj)
}

// PrepValue renders node into the payload stored in the column. A nil node is stored as NULL.
func (c Column) PrepValue(node *Node) ([]byte, error) {
	return Encode(node)
}

// FromDBValue reconstructs the Node stored in the column. NULL, empty and "{}" payloads yield nil.
func (c Column) FromDBValue(payload []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}

	node, err := c.unfreezer.UnfreezeJSON(trimmed, c.converters)
	if err != nil || node == nil {
		return nil, err
	}

	if model := node.Meta().Model(); model != c.spec.SourceModel {
		return nil, errors.Join(ErrModelMismatch, fmt.Errorf("column %s expects %s, got %s", c.spec.Name, c.spec.SourceModel, model))
	}

	return node, nil
}
