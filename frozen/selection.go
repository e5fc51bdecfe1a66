package frozen

import (
	"slices"
	"strings"
)

// Selection controls which attributes of an object (and its relations) are captured.
//
// Every list may chain into relations with PathSeparator: "address__city" selects "address"
// at the current level and forwards "city" to the capture of the address object.
//
// The rules are:
//   - by default all non-relational attributes are captured and no relations
//   - Include and Exclude are mutually exclusive
//   - Include selects a subset of attributes, relations included
//   - Exclude removes attributes from the default set
//   - SelectRelated adds relations on top of the Include/Exclude/default result
//   - SelectProperties captures computed properties as literal values
type Selection struct {
	Include          AttributeList `json:"include,omitempty" yaml:"include,omitempty" validate:"omitempty,dive,required"`
	Exclude          AttributeList `json:"exclude,omitempty" yaml:"exclude,omitempty" validate:"omitempty,dive,required"`
	SelectRelated    AttributeList `json:"select_related,omitempty" yaml:"select_related,omitempty" validate:"omitempty,dive,required"`
	SelectProperties AttributeList `json:"select_properties,omitempty" yaml:"select_properties,omitempty" validate:"omitempty,dive,required"`
}

// Validate checks that Include and Exclude are not both supplied.
func (s Selection) Validate() error {
	if len(sanitize(s.Include)) > 0 && len(sanitize(s.Exclude)) > 0 {
		return ErrConflictingSelection
	}

	return nil
}

// IsEmpty reports whether the selection has no entries in any of its lists.
func (s Selection) IsEmpty() bool {
	return len(sanitize(s.Include)) == 0 &&
		len(sanitize(s.Exclude)) == 0 &&
		len(sanitize(s.SelectRelated)) == 0 &&
		len(sanitize(s.SelectProperties)) == 0
}

// Next derives the selection for the object held by the attribute name:
// only entries chained below name are kept, with the "name__" prefix stripped.
func (s Selection) Next(name AttributeName) Selection {
	return Selection{
		Include:          nextLevel(s.Include, name),
		Exclude:          nextLevel(s.Exclude, name),
		SelectRelated:    nextLevel(s.SelectRelated, name),
		SelectProperties: nextLevel(s.SelectProperties, name),
	}
}

// Properties returns the computed properties to capture at the current level.
// Chained entries are only forwarded to the relation they address.
func (s Selection) Properties() AttributeList {
	properties := make(AttributeList, 0, len(s.SelectProperties))
	for _, p := range sanitize(s.SelectProperties) {
		if !strings.Contains(p, PathSeparator) && !slices.Contains(properties, p) {
			properties = append(properties, p)
		}
	}

	return properties
}

// topLevel extracts the first path segment of each entry, removing empty entries and duplicates
// while keeping the order of first appearance.
func topLevel(values AttributeList) AttributeList {
	result := make(AttributeList, 0, len(values))
	for _, v := range sanitize(values) {
		head, _, _ := strings.Cut(v, PathSeparator)
		if head != "" && !slices.Contains(result, head) {
			result = append(result, head)
		}
	}

	return result
}

// nextLevel keeps the entries chained below name, with the prefix stripped.
func nextLevel(values AttributeList, name AttributeName) AttributeList {
	var result AttributeList
	prefix := name + PathSeparator

	for _, v := range sanitize(values) {
		if rest, ok := strings.CutPrefix(v, prefix); ok && rest != "" && !slices.Contains(result, rest) {
			result = append(result, rest)
		}
	}

	return result
}

func sanitize(values AttributeList) AttributeList {
	return slices.DeleteFunc(slices.Clone(values), func(v AttributeName) bool {
		return strings.TrimSpace(v) == ""
	})
}
