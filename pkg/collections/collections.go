// Package collections has small generic slice helpers.
package collections

// Apply maps every item through fn, keeping order.
func Apply[T, V any](items []T, fn func(T) V) []V {
	result := make([]V, len(items))
	for i, item := range items {
		result[i] = fn(item)
	}

	return result
}

// Filter returns the items keep accepts, keeping order. It never returns
// the input slice itself.
func Filter[T any](items []T, keep func(T) bool) []T {
	var result []T
	for _, item := range items {
		if keep(item) {
			result = append(result, item)
		}
	}

	return result
}
