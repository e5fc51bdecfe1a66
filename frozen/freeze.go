package frozen

import (
	"errors"
	"fmt"
	"reflect"
)

// Freezer captures live objects into immutable Node trees.
// It holds no mutable state and is safe for concurrent use.
type Freezer struct {
	cfg engineConfig
}

// NewFreezer creates a Freezer with the default type registry and DefaultMaxDepth.
func NewFreezer(options ...Option) (Freezer, error) {
	cfg, err := buildEngineConfig(options)
	if err != nil {
		return Freezer{}, err
	}

	return Freezer{cfg: cfg}, nil
}

// Freeze captures root and the relations chosen by selection.
//
// A nil root yields a nil Node. A root which is already a *Node is returned unchanged when the selection
// is empty; any other selection fails with ErrCannotRescopeFrozenValue.
func Freeze(root Object, selection Selection, options ...Option) (*Node, error) {
	freezer, err := NewFreezer(options...)
	if err != nil {
		return nil, err
	}

	return freezer.Freeze(root, selection)
}

// Freeze captures root and the relations chosen by selection. See the package level Freeze.
func (f Freezer) Freeze(root Object, selection Selection) (*Node, error) {
	if isNil(root) {
		return nil, nil
	}

	if err := selection.Validate(); err != nil {
		return nil, err
	}

	if node, ok := root.(*Node); ok {
		if !selection.IsEmpty() {
			return nil, errors.Join(ErrCannotRescopeFrozenValue, fmt.Errorf("root is %s", node.TypeName()))
		}

		return node, nil
	}

	node, err := f.freeze(root, selection, 1, nil)
	if err != nil {
		if f.cfg.logger != nil {
			f.cfg.logger.Error(logMsgFreezeFailed, logAttrError, err.Error())
		}

		return nil, err
	}

	return node, nil
}

func (f Freezer) freeze(obj Object, selection Selection, depth int, ancestors []Object) (*Node, error) {
	schema := obj.Schema()

	if depth > f.cfg.maxDepth {
		return nil, errors.Join(ErrMaxDepthExceeded, fmt.Errorf("%s at depth %d, limit is %d", schema.Model, depth, f.cfg.maxDepth))
	}

	for _, ancestor := range ancestors {
		if sameObject(obj, ancestor) {
			return nil, errors.Join(ErrCycleDetected, fmt.Errorf("%s at depth %d", schema.Model, depth))
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}

	attrs, err := Resolve(schema, selection.Include, selection.Exclude, selection.SelectRelated)
	if err != nil {
		return nil, err
	}

	properties := selection.Properties()
	for _, p := range properties {
		if p == MetaKey {
			return nil, errors.Join(ErrReservedAttributeName, fmt.Errorf("property %s.%s", schema.Model, p))
		}

		if _, ok := schema.Attribute(p); ok {
			return nil, errors.Join(ErrUnsupportedValue, fmt.Errorf("property %s.%s is a declared attribute", schema.Model, p))
		}
	}

	ancestors = append(ancestors, obj)
	values := make(map[AttributeName]Value, len(attrs)+len(properties))

	for _, a := range attrs {
		raw, readErr := obj.Value(a.Name)
		if readErr != nil {
			return nil, readErr
		}

		v, valueErr := f.freezeValue(schema.Model, a, raw, selection.Next(a.Name), depth, ancestors)
		if valueErr != nil {
			return nil, valueErr
		}

		values[a.Name] = v
	}

	for _, p := range properties {
		raw, readErr := obj.Value(p)
		if readErr != nil {
			return nil, readErr
		}

		if _, isObject := raw.(Object); isObject && !isNil(raw) {
			return nil, errors.Join(ErrUnsupportedValue, fmt.Errorf("property %s.%s holds an object", schema.Model, p))
		}

		detached, detachErr := detachScalar(raw)
		if detachErr != nil {
			return nil, errors.Join(ErrUnsupportedValue, fmt.Errorf("property %s.%s: %w", schema.Model, p, detachErr))
		}

		values[p] = ScalarValue(detached)
	}

	meta := BuildMetaAt(schema.Model, attrs, properties, f.cfg.clock())

	if f.cfg.logger != nil {
		f.cfg.logger.Debug(
			logMsgNodeFrozen,
			logAttrModel, schema.Model,
			logAttrAttributeCount, len(values),
			logAttrDepth, depth,
		)
	}

	return newNode(meta, values, schema.Names()), nil
}

func (f Freezer) freezeValue(
	model ModelName,
	a AttributeDescriptor,
	raw any,
	next Selection,
	depth int,
	ancestors []Object,
) (Value, error) {

	if isNil(raw) {
		return ScalarValue(nil), nil
	}

	if node, ok := raw.(*Node); ok {
		if !IsRelationTag(a.TypeTag) && !IsFrozenTag(a.TypeTag) {
			return Value{}, errors.Join(ErrUnsupportedValue, fmt.Errorf("%s.%s (%s) holds a frozen object", model, a.Name, a.TypeTag))
		}

		if !next.IsEmpty() {
			return Value{}, errors.Join(ErrCannotRescopeFrozenValue, fmt.Errorf("%s.%s", model, a.Name))
		}

		if f.cfg.logger != nil {
			f.cfg.logger.Debug(logMsgFrozenPassedOn, logAttrModel, model, logAttrAttribute, a.Name)
		}

		return NestedValue(node), nil
	}

	switch {
	case IsFrozenTag(a.TypeTag):
		return Value{}, errors.Join(ErrUnsupportedValue, fmt.Errorf("%s.%s: expected a frozen object, got %T", model, a.Name, raw))

	case IsRelationTag(a.TypeTag):
		related, ok := raw.(Object)
		if !ok {
			return Value{}, errors.Join(ErrUnsupportedValue, fmt.Errorf("%s.%s: relation holds %T", model, a.Name, raw))
		}

		node, err := f.freeze(related, next, depth+1, ancestors)
		if err != nil {
			return Value{}, err
		}

		return NestedValue(node), nil
	}

	if _, isObject := raw.(Object); isObject {
		return Value{}, errors.Join(ErrUnsupportedValue, fmt.Errorf("%s.%s (%s) holds an object", model, a.Name, a.TypeTag))
	}

	caster, err := f.cfg.registry.Resolve(a.TypeTag)
	if err != nil {
		return Value{}, errors.Join(err, fmt.Errorf("%s.%s", model, a.Name))
	}

	// opaque JSON is kept in its decoded form, numbers in the form they are read back
	if a.TypeTag == TagJSON || a.TypeTag == TagInt || a.TypeTag == TagFloat {
		normalized, castErr := caster(raw)
		if castErr != nil {
			return Value{}, errors.Join(ErrCastFailed, fmt.Errorf("%s.%s (%s): %w", model, a.Name, a.TypeTag, castErr))
		}

		return ScalarValue(normalized), nil
	}

	detached, err := detachScalar(raw)
	if err != nil {
		return Value{}, errors.Join(ErrUnsupportedValue, fmt.Errorf("%s.%s (%s): %w", model, a.Name, a.TypeTag, err))
	}

	return ScalarValue(detached), nil
}

// sameObject reports whether a and b are the same pointer.
func sameObject(a, b Object) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || ta.Kind() != reflect.Pointer {
		return false
	}

	return a == b
}
