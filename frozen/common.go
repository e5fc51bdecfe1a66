package frozen

import (
	"errors"
)

var (
	// ErrConflictingSelection is returned when both include and exclude are supplied.
	ErrConflictingSelection = errors.New("'include' and 'exclude' are mutually exclusive")

	// ErrModelMismatch is returned when an object's model differs from the one recorded in metadata.
	ErrModelMismatch = errors.New("incorrect object type")

	// ErrMissingMetadata is returned when a frozen tree node lacks the reserved metadata key.
	ErrMissingMetadata = errors.New("frozen object has no metadata")

	// ErrMalformedMetadata is returned when the metadata sub-tree cannot be interpreted.
	ErrMalformedMetadata = errors.New("frozen object metadata is malformed")

	// ErrUnresolvableTypeTag is returned when a type tag has no registered caster.
	ErrUnresolvableTypeTag = errors.New("type tag cannot be resolved")

	// ErrCastFailed is returned when a raw value cannot be parsed by its type's rules.
	ErrCastFailed = errors.New("value cannot be cast to its declared type")

	// ErrCannotRescopeFrozenValue is returned when an outer freeze tries to apply a selection
	// to a value which is already frozen.
	ErrCannotRescopeFrozenValue = errors.New("cannot re-scope an already-frozen value")

	// ErrFrozenValueImmutable is returned for every attempt to write to a frozen Node.
	ErrFrozenValueImmutable = errors.New("frozen value cannot be modified")

	// ErrStaleObject is returned for every attempt to persist a frozen Node as live data.
	ErrStaleObject = errors.New("stale object - defrosted data cannot be saved")

	// ErrAttributeExcluded is returned when reading an attribute which was not captured.
	ErrAttributeExcluded = errors.New("attribute excluded from snapshot")

	// ErrUnknownAttribute is returned when reading an attribute the source model never had.
	ErrUnknownAttribute = errors.New("attribute does not exist")

	// ErrMissingAttributeValue is returned when a frozen tree lacks a value for a captured attribute.
	ErrMissingAttributeValue = errors.New("frozen object is missing a captured attribute")

	// ErrNotNested is returned when a nested snapshot is requested for a scalar attribute.
	ErrNotNested = errors.New("attribute does not hold a nested snapshot")

	// ErrCycleDetected is returned when selected relations lead back to an ancestor object.
	ErrCycleDetected = errors.New("cycle detected in selected relations")

	// ErrMaxDepthExceeded is returned when the relation graph is nested deeper than allowed.
	ErrMaxDepthExceeded = errors.New("maximum nesting depth exceeded")

	// ErrInvalidSchema is returned when a schema fails validation.
	ErrInvalidSchema = errors.New("schema is not valid")

	// ErrReservedAttributeName is returned when a schema declares the reserved metadata key as attribute.
	ErrReservedAttributeName = errors.New("attribute name is reserved")

	// ErrUnsupportedValue is returned when a value cannot be frozen in the requested position.
	ErrUnsupportedValue = errors.New("value cannot be frozen")

	// ErrInvalidColumnSpec is returned when a column spec fails validation.
	ErrInvalidColumnSpec = errors.New("column spec is not valid")

	// ErrInvalidPayloadJSON is returned when a payload cannot be decoded.
	ErrInvalidPayloadJSON = errors.New("payload json is not valid")

	// ErrInvalidOption is returned when an option receives an unusable value.
	ErrInvalidOption = errors.New("invalid option value")
)

// MetaKey is the reserved key holding the metadata sub-tree of every frozen node.
const MetaKey = "meta"

// PathSeparator chains attribute names into nested objects, e.g. "address__city".
const PathSeparator = "__"

// AttributeName identifies one captured field or computed property.
type AttributeName = string

// AttributeList is an alias type for a slice of AttributeName.
type AttributeList = []AttributeName

// ModelName is the stable identity of a source model, e.g. "shop.Address".
type ModelName = string
