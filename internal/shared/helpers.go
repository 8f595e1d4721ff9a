// Package shared provides common utility functions used across multiple
// packages in the lerobot codebase.
package shared

import (
	"sort"
)

// SortedKeys returns the string keys of a map in ascending order, so
// that bus traversal and log output stay deterministic.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CloneMap returns a shallow copy of a string-keyed map.
func CloneMap[M ~map[string]V, V any](m M) M {
	out := make(M, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}
