package common

import "fmt"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// IndexedName returns name, or kind_index when name is empty.
// Imported nodes, skins and clips use it so that every object stays addressable by name.
func IndexedName(name, kind string, index int) string {
	return Coalesce(name, fmt.Sprintf("%s_%d", kind, index))
}
