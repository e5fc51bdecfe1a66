package frozen

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AttributeDescriptor describes one declared attribute of a source model.
type AttributeDescriptor struct {
	Name       AttributeName `json:"name" validate:"required,excludes=__"`
	TypeTag    TypeTag       `json:"type_tag" validate:"required"`
	IsRelation bool          `json:"is_relation"`
}

// Schema is the ordered attribute list of a source model, as supplied by the data-access layer.
type Schema struct {
	Model      ModelName             `json:"model" validate:"required"`
	Attributes []AttributeDescriptor `json:"attributes" validate:"dive"`
}

// Validate checks the schema for missing names and tags, duplicated or reserved attribute names,
// and relation flags which contradict the declared type tag.
func (s Schema) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidSchema, err)
	}

	seen := make(map[AttributeName]struct{}, len(s.Attributes))
	for _, a := range s.Attributes {
		if a.Name == MetaKey {
			return errors.Join(ErrInvalidSchema, ErrReservedAttributeName, fmt.Errorf("model %s: %q", s.Model, a.Name))
		}

		if _, ok := seen[a.Name]; ok {
			return errors.Join(ErrInvalidSchema, fmt.Errorf("model %s: duplicate attribute %q", s.Model, a.Name))
		}
		seen[a.Name] = struct{}{}

		if a.IsRelation != IsRelationTag(a.TypeTag) {
			return errors.Join(ErrInvalidSchema, fmt.Errorf("model %s: attribute %q has relation flag %t but tag %q", s.Model, a.Name, a.IsRelation, a.TypeTag))
		}
	}

	return nil
}

// Attribute returns the descriptor for name.
func (s Schema) Attribute(name AttributeName) (AttributeDescriptor, bool) {
	i := slices.IndexFunc(s.Attributes, func(a AttributeDescriptor) bool { return a.Name == name })
	if i < 0 {
		return AttributeDescriptor{}, false
	}

	return s.Attributes[i], true
}

// Names returns the attribute names in schema order.
func (s Schema) Names() AttributeList {
	names := make(AttributeList, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		names = append(names, a.Name)
	}

	return names
}

// Object is a live, readable source object.
//
// Value returns declared attributes as well as computed properties. Relations are returned
// as Object values (or nil), already frozen attributes as *Node values.
type Object interface {
	Schema() Schema
	Value(name AttributeName) (any, error)
}

// SchemaProvider resolves a model identity to its schema.
type SchemaProvider interface {
	SchemaFor(model ModelName) (Schema, bool)
}

// SchemaRegistry is a static SchemaProvider.
type SchemaRegistry struct {
	schemas map[ModelName]Schema
}

// NewSchemaRegistry validates the schemas and registers them by model.
func NewSchemaRegistry(schemas ...Schema) (SchemaRegistry, error) {
	registry := SchemaRegistry{schemas: make(map[ModelName]Schema, len(schemas))}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return SchemaRegistry{}, err
		}
		registry.schemas[s.Model] = s
	}

	return registry, nil
}

// SchemaFor implements SchemaProvider.
func (r SchemaRegistry) SchemaFor(model ModelName) (Schema, bool) {
	s, ok := r.schemas[model]
	return s, ok
}

// PropertyFunc computes a property value of a Record.
type PropertyFunc func() any

// Record is an in-memory live Object backed by a value map.
type Record struct {
	schema     Schema
	values     map[AttributeName]any
	properties map[AttributeName]PropertyFunc
}

// RecordOption configures a Record.
type RecordOption func(*Record) error

// WithProperty adds a computed property to the Record.
func WithProperty(name AttributeName, fn PropertyFunc) RecordOption {
	return func(r *Record) error {
		if name == "" || fn == nil {
			return errors.Join(ErrInvalidOption, errors.New("property needs a name and a function"))
		}

		if _, ok := r.schema.Attribute(name); ok {
			return errors.Join(ErrInvalidOption, fmt.Errorf("property %q shadows an attribute", name))
		}

		r.properties[name] = fn

		return nil
	}
}

// NewRecord creates a Record for schema. Values for undeclared attributes are rejected.
func NewRecord(schema Schema, values map[AttributeName]any, options ...RecordOption) (*Record, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	r := &Record{
		schema:     schema,
		values:     make(map[AttributeName]any, len(values)),
		properties: make(map[AttributeName]PropertyFunc),
	}

	for name, v := range values {
		if err := r.Set(name, v); err != nil {
			return nil, err
		}
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Schema implements Object.
func (r *Record) Schema() Schema {
	return r.schema
}

// Value implements Object. Declared attributes without a value read as nil.
func (r *Record) Value(name AttributeName) (any, error) {
	if fn, ok := r.properties[name]; ok {
		return fn(), nil
	}

	if _, ok := r.schema.Attribute(name); !ok {
		return nil, errors.Join(ErrUnknownAttribute, fmt.Errorf("%s.%s", r.schema.Model, name))
	}

	return r.values[name], nil
}

// Set updates a live attribute. Relations only accept an Object (or nil).
func (r *Record) Set(name AttributeName, value any) error {
	a, ok := r.schema.Attribute(name)
	if !ok {
		return errors.Join(ErrUnknownAttribute, fmt.Errorf("%s.%s", r.schema.Model, name))
	}

	if a.IsRelation && !isNil(value) {
		if _, isObject := value.(Object); !isObject {
			return errors.Join(ErrUnsupportedValue, fmt.Errorf("%s.%s: relation needs an object, got %T", r.schema.Model, name, value))
		}
	}

	r.values[name] = value

	return nil
}

// isNil reports whether v is nil or a typed nil pointer, map, slice or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
