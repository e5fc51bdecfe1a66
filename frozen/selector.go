package frozen

import (
	"slices"
)

// Resolve computes the attributes of schema captured for the given (top-level) selection lists.
//
// Chained entries are reduced to their first path segment, so the lists may be passed unsplit.
// The result holds the non-relational (or included) attributes first, then the select_related
// additions, each group in schema order and without duplicates.
func Resolve(
	schema Schema,
	include AttributeList,
	exclude AttributeList,
	selectRelated AttributeList,
) ([]AttributeDescriptor, error) {

	include = topLevel(include)
	exclude = topLevel(exclude)
	selectRelated = topLevel(selectRelated)

	if len(include) > 0 && len(exclude) > 0 {
		return nil, ErrConflictingSelection
	}

	local := make([]AttributeDescriptor, 0, len(schema.Attributes))
	related := make([]AttributeDescriptor, 0)

	for _, a := range schema.Attributes {
		if a.IsRelation {
			related = append(related, a)
		} else {
			local = append(local, a)
		}
	}

	var result []AttributeDescriptor

	switch {
	case len(include) > 0:
		result = append(result, filterNamed(local, include, true)...)
		result = append(result, filterNamed(related, include, true)...)

	case len(exclude) > 0:
		result = append(result, filterNamed(local, exclude, false)...)

	default:
		result = append(result, local...)
	}

	for _, a := range filterNamed(related, selectRelated, true) {
		if !slices.ContainsFunc(result, func(r AttributeDescriptor) bool { return r.Name == a.Name }) {
			result = append(result, a)
		}
	}

	return result, nil
}

func filterNamed(attrs []AttributeDescriptor, names AttributeList, keep bool) []AttributeDescriptor {
	result := make([]AttributeDescriptor, 0, len(attrs))
	for _, a := range attrs {
		if slices.Contains(names, a.Name) == keep {
			result = append(result, a)
		}
	}

	return result
}
