package geo

import "slices"

// referenceEvaluator is the portable implementation: plain value types and
// Distance calls, nothing clever. It doubles as the correctness oracle for
// the packed path.
type referenceEvaluator struct{}

func (referenceEvaluator) Name() string { return "reference" }

func (e referenceEvaluator) AnyTouched(targets []Target, track Track) bool {
	return slices.ContainsFunc(targets, func(t Target) bool {
		return e.touched(t, track)
	})
}

func (e referenceEvaluator) AllTouched(targets []Target, track Track) bool {
	return !slices.ContainsFunc(targets, func(t Target) bool {
		return !e.touched(t, track)
	})
}

// touched reports whether any sample lies within the target's radius,
// inclusive at the boundary. The scan stops at the first hit; an empty
// track touches nothing.
func (referenceEvaluator) touched(t Target, track Track) bool {
	radiusKM := t.RadiusMeters / 1000
	return slices.ContainsFunc(track, func(s Point) bool {
		return Distance(t.Point, s) <= radiusKM
	})
}
