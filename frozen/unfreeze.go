package frozen

import (
	"errors"
	"fmt"
	"strings"
)

// ConverterFunc converts one raw attribute value during unfreezing, in place of the type registry.
type ConverterFunc func(raw any) (any, error)

// ConverterMap maps attribute names to converters. Keys chain into nested snapshots with
// PathSeparator: "address__since" applies to attribute "since" of the nested "address" snapshot.
type ConverterMap map[AttributeName]ConverterFunc

// Next derives the converters for the nested snapshot held by name, with the "name__" prefix stripped.
func (c ConverterMap) Next(name AttributeName) ConverterMap {
	next := make(ConverterMap)
	prefix := name + PathSeparator

	for key, fn := range c {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
			next[rest] = fn
		}
	}

	return next
}

// lookup returns the converter registered for name at the current level.
func (c ConverterMap) lookup(name AttributeName) (ConverterFunc, bool) {
	fn, ok := c[name]
	return fn, ok && fn != nil
}

// Unfreezer reconstructs typed Node trees from decoded payloads.
// It holds no mutable state and is safe for concurrent use.
type Unfreezer struct {
	cfg engineConfig
}

// NewUnfreezer creates an Unfreezer with the default type registry and DefaultMaxDepth.
func NewUnfreezer(options ...Option) (Unfreezer, error) {
	cfg, err := buildEngineConfig(options)
	if err != nil {
		return Unfreezer{}, err
	}

	return Unfreezer{cfg: cfg}, nil
}

// Unfreeze reconstructs a Node from a decoded tree. A nil or empty tree yields a nil Node.
//
// The metadata of every level drives the reconstruction: nested trees are unfrozen recursively,
// every other value goes through its converter if there is one, else through the caster of its type tag.
// Captured properties without a converter are passed through unchanged. The raw tree is not modified.
func Unfreeze(raw map[string]any, converters ConverterMap, options ...Option) (*Node, error) {
	unfreezer, err := NewUnfreezer(options...)
	if err != nil {
		return nil, err
	}

	return unfreezer.Unfreeze(raw, converters)
}

// UnfreezeJSON decodes payload and reconstructs a Node from it.
func UnfreezeJSON(payload []byte, converters ConverterMap, options ...Option) (*Node, error) {
	unfreezer, err := NewUnfreezer(options...)
	if err != nil {
		return nil, err
	}

	return unfreezer.UnfreezeJSON(payload, converters)
}

// Unfreeze reconstructs a Node from a decoded tree. See the package level Unfreeze.
func (u Unfreezer) Unfreeze(raw map[string]any, converters ConverterMap) (*Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	node, err := u.unfreeze(raw, converters, 1)
	if err != nil {
		if u.cfg.logger != nil {
			u.cfg.logger.Error(logMsgUnfreezeFailed, logAttrError, err.Error())
		}

		return nil, err
	}

	return node, nil
}

// UnfreezeJSON decodes payload and reconstructs a Node from it.
func (u Unfreezer) UnfreezeJSON(payload []byte, converters ConverterMap) (*Node, error) {
	tree, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	return u.Unfreeze(tree, converters)
}

func (u Unfreezer) unfreeze(raw map[string]any, converters ConverterMap, depth int) (*Node, error) {
	rawMeta, ok := raw[MetaKey]
	if !ok {
		return nil, errors.Join(ErrMissingMetadata, fmt.Errorf("no %q key at depth %d", MetaKey, depth))
	}

	meta, err := ParseMeta(rawMeta)
	if err != nil {
		return nil, err
	}

	if depth > u.cfg.maxDepth {
		return nil, errors.Join(ErrMaxDepthExceeded, fmt.Errorf("%s at depth %d, limit is %d", meta.model, depth, u.cfg.maxDepth))
	}

	for key := range raw {
		if key != MetaKey && !meta.IsCaptured(key) {
			return nil, errors.Join(ErrUnresolvableTypeTag, fmt.Errorf("%s.%s has no type tag", meta.model, key))
		}
	}

	attrs := meta.FrozenAttrs()
	values := make(map[AttributeName]Value, len(attrs))

	for _, name := range attrs {
		rawValue, exists := raw[name]
		if !exists {
			return nil, errors.Join(ErrMissingAttributeValue, fmt.Errorf("%s.%s", meta.model, name))
		}

		v, valueErr := u.unfreezeValue(meta, name, rawValue, converters, depth)
		if valueErr != nil {
			return nil, valueErr
		}

		values[name] = v
	}

	var known AttributeList
	if u.cfg.schemas != nil {
		if schema, found := u.cfg.schemas.SchemaFor(meta.model); found {
			known = schema.Names()
		}
	}

	if u.cfg.logger != nil {
		u.cfg.logger.Debug(
			logMsgNodeUnfrozen,
			logAttrModel, meta.model,
			logAttrAttributeCount, len(values),
			logAttrDepth, depth,
		)
	}

	return newNode(meta, values, known), nil
}

func (u Unfreezer) unfreezeValue(
	meta Meta,
	name AttributeName,
	raw any,
	converters ConverterMap,
	depth int,
) (Value, error) {

	if raw == nil {
		return ScalarValue(nil), nil
	}

	if meta.IsRelation(name) {
		tree, ok := raw.(map[string]any)
		if !ok {
			return Value{}, errors.Join(ErrMissingMetadata, fmt.Errorf("%s.%s: expected a frozen object, got %T", meta.model, name, raw))
		}

		if len(tree) == 0 {
			return ScalarValue(nil), nil
		}

		node, err := u.unfreeze(tree, converters.Next(name), depth+1)
		if err != nil {
			return Value{}, err
		}

		return NestedValue(node), nil
	}

	if convert, ok := converters.lookup(name); ok {
		value, err := convert(cloneScalar(raw))
		if err != nil {
			return Value{}, errors.Join(ErrCastFailed, fmt.Errorf("%s.%s (converter): %w", meta.model, name, err))
		}

		return ScalarValue(value), nil
	}

	value, err := meta.CastWith(u.cfg.registry, name, raw)
	if err != nil {
		return Value{}, err
	}

	return ScalarValue(cloneScalar(value)), nil
}
