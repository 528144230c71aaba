package store

import "sort"

// Sort returns a new slice of migrations sorted by Version in lexicographic
// order. Timestamp versions compare correctly as strings. The sort is stable
// to preserve insertion order for equal versions.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	return sorted
}
