// Package score turns gathered findings into bounded layer scores and
// aggregates them into plugin and role risk profiles.
//
// Every function in this package is pure: no I/O, no clock, no shared state.
package score

// LayerCap bounds each layer score except privacy's provider penalty.
const LayerCap = 65

func capAt(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

func countAtMost(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}
