package bench

import "golang.org/x/exp/constraints"

// clampMax caps v at most to max, the way catrate's ring buffer bounds its
// generic element type with constraints.Ordered rather than hand-rolling a
// per-type comparison.
func clampMax[T constraints.Ordered](v, max T) T {
	if v > max {
		return max
	}
	return v
}

// clampMin floors v at least to min.
func clampMin[T constraints.Ordered](v, min T) T {
	if v < min {
		return min
	}
	return v
}
