package frozen

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

const (
	metaKeyModel      = "model"
	metaKeyFields     = "fields"
	metaKeyProperties = "properties"
	metaKeyFrozenAt   = "frozen_at"
)

// Meta describes one frozen node: which model it came from, the type tag of every captured
// field, the captured computed properties, and when it was frozen.
//
// The type tags are what make the payload reversible. A decimal is encoded as "1.49" and only
// the tag tells the Unfreezer to read it back as a decimal rather than as text:
//
//	{
//	    "model": "shop.Order",
//	    "fields": {"total": "decimal"},
//	    "properties": ["full_name"],
//	    "frozen_at": "2021-06-04T18:10:30.549Z"
//	}
//
// Meta is immutable.
type Meta struct {
	model      ModelName
	fields     map[AttributeName]TypeTag
	properties AttributeList
	frozenAt   time.Time
}

// BuildMeta creates the metadata for the captured attributes and properties of model, frozen now.
func BuildMeta(model ModelName, attrs []AttributeDescriptor, properties AttributeList) Meta {
	return BuildMetaAt(model, attrs, properties, time.Now())
}

// BuildMetaAt creates the metadata with an explicit frozen-at timestamp.
func BuildMetaAt(model ModelName, attrs []AttributeDescriptor, properties AttributeList, frozenAt time.Time) Meta {
	fields := make(map[AttributeName]TypeTag, len(attrs))
	for _, a := range attrs {
		fields[a.Name] = a.TypeTag
	}

	return Meta{
		model:      model,
		fields:     fields,
		properties: topLevel(properties),
		frozenAt:   frozenAt,
	}
}

// ParseMeta reads the metadata sub-tree of a decoded payload.
func ParseMeta(raw any) (Meta, error) {
	tree, ok := raw.(map[string]any)
	if !ok {
		return Meta{}, errors.Join(ErrMalformedMetadata, fmt.Errorf("expected an object, got %T", raw))
	}

	model, ok := tree[metaKeyModel].(string)
	if !ok || model == "" {
		return Meta{}, errors.Join(ErrMalformedMetadata, errors.New("model is missing"))
	}

	fields := make(map[AttributeName]TypeTag)
	if rawFields, exists := tree[metaKeyFields]; exists && rawFields != nil {
		fieldTree, isMap := rawFields.(map[string]any)
		if !isMap {
			return Meta{}, errors.Join(ErrMalformedMetadata, fmt.Errorf("fields: expected an object, got %T", rawFields))
		}

		for name, rawTag := range fieldTree {
			tag, isString := rawTag.(string)
			if !isString || tag == "" {
				return Meta{}, errors.Join(ErrMalformedMetadata, fmt.Errorf("fields: invalid type tag for %q", name))
			}
			fields[name] = tag
		}
	}

	properties := make(AttributeList, 0)
	if rawProperties, exists := tree[metaKeyProperties]; exists && rawProperties != nil {
		list, isList := rawProperties.([]any)
		if !isList {
			return Meta{}, errors.Join(ErrMalformedMetadata, fmt.Errorf("properties: expected a list, got %T", rawProperties))
		}

		for _, p := range list {
			name, isString := p.(string)
			if !isString || name == "" {
				return Meta{}, errors.Join(ErrMalformedMetadata, errors.New("properties: invalid property name"))
			}
			properties = append(properties, name)
		}
	}

	frozenAt, err := parseFrozenAt(tree[metaKeyFrozenAt])
	if err != nil {
		return Meta{}, err
	}

	return Meta{
		model:      model,
		fields:     fields,
		properties: properties,
		frozenAt:   frozenAt,
	}, nil
}

func parseFrozenAt(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		dateTime, err := strfmt.ParseDateTime(v)
		if err != nil || v == "" {
			return time.Time{}, errors.Join(ErrMalformedMetadata, fmt.Errorf("frozen_at: %q", v), err)
		}

		return time.Time(dateTime), nil
	default:
		return time.Time{}, errors.Join(ErrMalformedMetadata, errors.New("frozen_at is missing"))
	}
}

// HasMeta reports whether value looks like a frozen tree, i.e. holds a metadata sub-tree with a timestamp.
func HasMeta(value any) bool {
	tree, ok := value.(map[string]any)
	if !ok || len(tree) == 0 {
		return false
	}

	meta, ok := tree[MetaKey].(map[string]any)
	if !ok {
		return false
	}

	_, ok = meta[metaKeyFrozenAt]

	return ok
}

// Model returns the model identity.
func (m Meta) Model() ModelName {
	return m.model
}

// Fields returns a copy of the attribute to type tag map.
func (m Meta) Fields() map[AttributeName]TypeTag {
	return maps.Clone(m.fields)
}

// FieldTag returns the type tag of a captured field.
func (m Meta) FieldTag(name AttributeName) (TypeTag, bool) {
	tag, ok := m.fields[name]
	return tag, ok
}

// Properties returns a copy of the captured property names.
func (m Meta) Properties() AttributeList {
	return slices.Clone(m.properties)
}

// FrozenAt returns the capture timestamp.
func (m Meta) FrozenAt() time.Time {
	return m.frozenAt
}

// FrozenAttrs returns all captured names, fields and properties, sorted and without duplicates.
func (m Meta) FrozenAttrs() AttributeList {
	attrs := slices.Collect(maps.Keys(m.fields))
	attrs = append(attrs, m.properties...)
	slices.Sort(attrs)

	return slices.Compact(attrs)
}

// TypeName returns a readable name for nodes of this shape, e.g. "FrozenAddress" for "shop.Address".
func (m Meta) TypeName() string {
	parts := strings.Split(m.model, ".")
	return "Frozen" + parts[len(parts)-1]
}

// IsCaptured reports whether name is a captured field or property.
func (m Meta) IsCaptured(name AttributeName) bool {
	_, ok := m.fields[name]
	return ok || m.IsProperty(name)
}

// IsProperty reports whether name is a captured computed property.
func (m Meta) IsProperty(name AttributeName) bool {
	return slices.Contains(m.properties, name)
}

// IsRelation reports whether name holds a nested snapshot: a relation or an already-frozen value.
// Properties are never relations.
func (m Meta) IsRelation(name AttributeName) bool {
	if m.IsProperty(name) {
		return false
	}

	tag, ok := m.fields[name]

	return ok && (IsRelationTag(tag) || IsFrozenTag(tag))
}

// IsFrozen reports whether name held a previously frozen value at capture time.
func (m Meta) IsFrozen(name AttributeName) bool {
	if m.IsProperty(name) {
		return false
	}

	tag, ok := m.fields[name]

	return ok && IsFrozenTag(tag)
}

// Cast converts raw back to the native type of name using the default TypeRegistry.
func (m Meta) Cast(name AttributeName, raw any) (any, error) {
	return m.CastWith(defaultTypeRegistry, name, raw)
}

// CastWith converts raw back to the native type of name using registry.
// Properties carry no type tag and are returned unchanged, as are nil values.
func (m Meta) CastWith(registry TypeRegistry, name AttributeName, raw any) (any, error) {
	if m.IsProperty(name) || raw == nil {
		return raw, nil
	}

	tag, ok := m.fields[name]
	if !ok {
		return nil, errors.Join(ErrUnresolvableTypeTag, fmt.Errorf("%s.%s is not a captured field", m.model, name))
	}

	caster, err := registry.Resolve(tag)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("%s.%s", m.model, name))
	}

	value, err := caster(raw)
	if err != nil {
		return nil, errors.Join(ErrCastFailed, fmt.Errorf("%s.%s (%s): %w", m.model, name, tag, err))
	}

	return value, nil
}

// ParseFromObject extracts the captured values from obj.
// Nested objects are returned as they are; turning them into snapshots is up to the caller.
func (m Meta) ParseFromObject(obj Object) (map[AttributeName]any, error) {
	if model := obj.Schema().Model; model != m.model {
		return nil, errors.Join(ErrModelMismatch, fmt.Errorf("expected %s, got %s", m.model, model))
	}

	values := make(map[AttributeName]any, len(m.fields)+len(m.properties))
	for _, name := range m.FrozenAttrs() {
		v, err := obj.Value(name)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}

	return values, nil
}

// SameShape reports whether both metas describe the same model, fields and properties.
// The capture timestamp is ignored.
func (m Meta) SameShape(other Meta) bool {
	return m.model == other.model &&
		maps.Equal(m.fields, other.fields) &&
		slices.Equal(sortedCopy(m.properties), sortedCopy(other.properties))
}

// Tree returns the wire representation of the metadata.
func (m Meta) Tree() map[string]any {
	fields := make(map[string]any, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}

	properties := make([]any, 0, len(m.properties))
	for _, p := range m.properties {
		properties = append(properties, p)
	}

	return map[string]any{
		metaKeyModel:      m.model,
		metaKeyFields:     fields,
		metaKeyProperties: properties,
		metaKeyFrozenAt:   strfmt.DateTime(m.frozenAt.UTC()).String(),
	}
}

// schema derives a Schema from the captured fields, in FrozenAttrs order.
func (m Meta) schema() Schema {
	attrs := make([]AttributeDescriptor, 0, len(m.fields))
	for _, name := range m.FrozenAttrs() {
		if tag, ok := m.fields[name]; ok {
			attrs = append(attrs, AttributeDescriptor{Name: name, TypeTag: tag, IsRelation: IsRelationTag(tag)})
		}
	}

	return Schema{Model: m.model, Attributes: attrs}
}

func sortedCopy(values AttributeList) AttributeList {
	c := slices.Clone(values)
	slices.Sort(c)

	return c
}
