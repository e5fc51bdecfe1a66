package frozen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/go-openapi/strfmt"
)

// Value is one captured attribute value: either a scalar (nil included) or a nested snapshot.
type Value struct {
	scalar any
	node   *Node
}

// ScalarValue wraps a scalar.
func ScalarValue(v any) Value {
	return Value{scalar: v}
}

// NestedValue wraps a nested snapshot. A nil node is a null value.
func NestedValue(n *Node) Value {
	return Value{node: n}
}

// IsNested reports whether the value holds a nested snapshot.
func (v Value) IsNested() bool {
	return v.node != nil
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.node == nil && v.scalar == nil
}

// Node returns the nested snapshot, or nil for scalars.
func (v Value) Node() *Node {
	return v.node
}

// Interface returns the nested *Node or the scalar.
func (v Value) Interface() any {
	if v.node != nil {
		return v.node
	}

	return cloneScalar(v.scalar)
}

// Equal compares two values structurally, ignoring capture timestamps of nested snapshots.
func (v Value) Equal(other Value) bool {
	if v.node != nil || other.node != nil {
		return v.node.Equal(other.node)
	}

	return scalarsEqual(v.scalar, other.scalar)
}

// Node is an immutable snapshot of one object: its Meta plus one Value per captured attribute.
//
// A Node can only be produced by a Freezer or an Unfreezer. It implements Object, so it can be
// handed to code which expects live objects; every write or persist attempt fails.
type Node struct {
	meta   Meta
	values map[AttributeName]Value
	known  AttributeList
}

func newNode(meta Meta, values map[AttributeName]Value, known AttributeList) *Node {
	return &Node{
		meta:   meta,
		values: values,
		known:  known,
	}
}

// Meta returns the metadata of the node.
func (n *Node) Meta() Meta {
	return n.meta
}

// Attrs returns the captured attribute names.
func (n *Node) Attrs() AttributeList {
	return n.meta.FrozenAttrs()
}

// TypeName returns a readable type name, e.g. "FrozenAddress".
func (n *Node) TypeName() string {
	return n.meta.TypeName()
}

// Get returns the value of a captured attribute: a *Node for nested snapshots, the typed scalar otherwise.
//
// Reading an attribute which was not captured fails with ErrAttributeExcluded, unless the source
// schema is known to the node and does not declare it, which fails with ErrUnknownAttribute.
func (n *Node) Get(name AttributeName) (any, error) {
	v, err := n.Lookup(name)
	if err != nil {
		return nil, err
	}

	return v.Interface(), nil
}

// Lookup returns the tagged Value of a captured attribute.
func (n *Node) Lookup(name AttributeName) (Value, error) {
	if v, ok := n.values[name]; ok {
		return v, nil
	}

	if n.known != nil && !slices.Contains(n.known, name) {
		return Value{}, errors.Join(ErrUnknownAttribute, fmt.Errorf("%s.%s", n.meta.model, name))
	}

	return Value{}, errors.Join(ErrAttributeExcluded, fmt.Errorf("%s.%s", n.meta.model, name))
}

// Related returns the nested snapshot held by name, nil if the relation was null.
func (n *Node) Related(name AttributeName) (*Node, error) {
	v, err := n.Lookup(name)
	if err != nil {
		return nil, err
	}

	if v.IsNull() {
		return nil, nil
	}

	if !v.IsNested() {
		return nil, errors.Join(ErrNotNested, fmt.Errorf("%s.%s", n.meta.model, name))
	}

	return v.node, nil
}

// Set always fails: a frozen value cannot be modified.
func (n *Node) Set(name AttributeName, _ any) error {
	return errors.Join(ErrFrozenValueImmutable, fmt.Errorf("%s.%s", n.TypeName(), name))
}

// Save always fails: defrosted data must never overwrite current live data.
func (n *Node) Save(_ context.Context) error {
	return errors.Join(ErrStaleObject, fmt.Errorf("%s frozen at %s", n.TypeName(), strfmt.DateTime(n.meta.frozenAt)))
}

// Schema implements Object with the captured fields of the node.
func (n *Node) Schema() Schema {
	return n.meta.schema()
}

// Value implements Object.
func (n *Node) Value(name AttributeName) (any, error) {
	return n.Get(name)
}

// Equal compares nodes structurally: model, captured fields and properties, and all values,
// nested snapshots included. Capture timestamps are ignored at every level.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}

	if !n.meta.SameShape(other.meta) || len(n.values) != len(other.values) {
		return false
	}

	for name, v := range n.values {
		ov, ok := other.values[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}

	return true
}

// Data returns the captured values as plain maps, with the metadata of every level removed.
func (n *Node) Data() map[string]any {
	data := make(map[string]any, len(n.values))
	for name, v := range n.values {
		if v.IsNested() {
			data[name] = v.node.Data()
			continue
		}
		data[name] = cloneScalar(v.scalar)
	}

	return data
}

// Tree returns the wire representation: the metadata under MetaKey and one entry per attribute,
// nested snapshots as trees of the same shape.
func (n *Node) Tree() map[string]any {
	tree := make(map[string]any, len(n.values)+1)
	tree[MetaKey] = n.meta.Tree()

	for name, v := range n.values {
		if v.IsNested() {
			tree[name] = v.node.Tree()
			continue
		}
		tree[name] = cloneScalar(v.scalar)
	}

	return tree
}

// String returns a short description, e.g. "FrozenAddress[city line1]".
func (n *Node) String() string {
	return fmt.Sprintf("%s%v", n.TypeName(), n.Attrs())
}

func scalarsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if an, ok := asNumber(a); ok {
		bn, ok := asNumber(b)
		return ok && an.equal(bn)
	}

	if at, ok := asTime(a); ok {
		bt, ok := asTime(b)
		return ok && at.Equal(bt)
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !scalarsEqual(v, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		return ok && slices.EqualFunc(av, bv, scalarsEqual)
	}

	// types with an Equal(T) bool method, e.g. decimal.Decimal
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() == bv.Type() {
		if m := av.MethodByName("Equal"); m.IsValid() {
			mt := m.Type()
			if mt.NumIn() == 1 && mt.In(0) == av.Type() && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
				return m.Call([]reflect.Value{bv})[0].Bool()
			}
		}
	}

	return reflect.DeepEqual(a, b)
}

// number is a decoded or live numeric value; integral values compare exactly.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func (n number) equal(other number) bool {
	if n.isInt && other.isInt {
		return n.i == other.i
	}

	return n.f == other.f
}

func asNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return intNumber(int64(x)), true
	case int8:
		return intNumber(int64(x)), true
	case int16:
		return intNumber(int64(x)), true
	case int32:
		return intNumber(int64(x)), true
	case int64:
		return intNumber(x), true
	case uint8:
		return intNumber(int64(x)), true
	case uint16:
		return intNumber(int64(x)), true
	case uint32:
		return intNumber(int64(x)), true
	case uint:
		return uintNumber(uint64(x)), true
	case uint64:
		return uintNumber(x), true
	case float32:
		return floatNumber(float64(x)), true
	case float64:
		return floatNumber(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return intNumber(i), true
		}
		f, err := x.Float64()
		return floatNumber(f), err == nil
	default:
		return number{}, false
	}
}

func intNumber(i int64) number {
	return number{i: i, f: float64(i), isInt: true}
}

func uintNumber(u uint64) number {
	if u > math.MaxInt64 {
		return number{f: float64(u)}
	}

	return intNumber(int64(u))
}

func floatNumber(f float64) number {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return number{i: int64(f), f: f, isInt: true}
	}

	return number{f: f}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case strfmt.Date:
		return time.Time(t), true
	case strfmt.DateTime:
		return time.Time(t), true
	default:
		return time.Time{}, false
	}
}

// cloneScalar copies JSON-like containers so that no caller shares mutable state with a node.
func cloneScalar(v any) any {
	switch c := v.(type) {
	case map[string]any:
		cloned := maps.Clone(c)
		for k, inner := range cloned {
			cloned[k] = cloneScalar(inner)
		}
		return cloned
	case []any:
		cloned := slices.Clone(c)
		for i, inner := range cloned {
			cloned[i] = cloneScalar(inner)
		}
		return cloned
	case []byte:
		return slices.Clone(c)
	default:
		return v
	}
}

// detachScalar copies a live value so that the snapshot shares nothing with the live object.
// Typed slices, maps and pointers are rendered to their decoded JSON form, float32 is widened
// so that it encodes to the value it holds.
func detachScalar(v any) (any, error) {
	switch c := v.(type) {
	case nil, map[string]any, []any, []byte:
		return cloneScalar(c), nil
	case float32:
		return float64(c), nil
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		data, err := payloadJSON.Marshal(v)
		if err != nil {
			return nil, err
		}

		var decoded any
		if err = payloadJSON.Unmarshal(data, &decoded); err != nil {
			return nil, err
		}

		return decoded, nil
	default:
		return v, nil
	}
}

// CheckPersistable is the guard for every path which writes live data: it fails with ErrStaleObject
// for frozen objects, including nil *Node values.
func CheckPersistable(obj Object) error {
	if n, ok := obj.(*Node); ok {
		if n == nil {
			return errors.Join(ErrStaleObject, errors.New("nil frozen object"))
		}

		return n.Save(context.Background())
	}

	return nil
}
