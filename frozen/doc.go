// Package frozen captures live relational objects into immutable, self-describing snapshots
// and restores them as read-only typed values.
//
// A snapshot (Node) records, next to the captured values, metadata with the model identity,
// the type tag of every captured field, the captured computed properties, and the capture
// timestamp. The type tags make the JSON encoding reversible without access to the live schema.
//
// What gets captured is controlled by a Selection:
//   - by default all non-relational attributes and no relations
//   - Include or Exclude (mutually exclusive) to narrow down the attributes
//   - SelectRelated to add relations
//   - SelectProperties to capture computed properties
//
// Every list chains into relations with "__": "address__city" captures the address relation
// and only its city.
//
// A Node rejects every write with ErrFrozenValueImmutable and every attempt to persist it as
// live data with ErrStaleObject.
//
// Key types:
//   - Object, Schema, Record: the live side
//   - Freezer, Unfreezer: the engines
//   - Node, Meta, Value: the snapshot side
//   - TypeRegistry: type tag to caster mapping
//   - Column, ColumnSpec: a frozen payload column
//
// Common usage pattern:
//
//	node, err := frozen.Freeze(order, frozen.Selection{
//		SelectRelated:    frozen.AttributeList{"customer"},
//		SelectProperties: frozen.AttributeList{"customer__full_name"},
//	})
//	if err != nil {
//		// handle error
//	}
//
//	payload, err := frozen.Encode(node)
//	// ... store the payload, later read it back
//	restored, err := frozen.UnfreezeJSON(payload, nil)
//	name, err := restored.Get("total")
package frozen
