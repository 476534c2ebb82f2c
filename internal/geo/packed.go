package geo

import "math"

// Packed buffer layout: contiguous, row-major float64 values. Targets carry
// TargetStride values per element (lat, lon, radius in meters), tracks carry
// TrackStride values per element (lat, lon). Element counts are implied by
// the slice lengths; the core converts to these buffers exactly once at the
// boundary and owns neither buffer beyond a single call.
const (
	TargetStride = 3
	TrackStride  = 2
)

// PackTargets flattens targets into a row-major buffer with TargetStride
// values per target.
func PackTargets(targets []Target) []float64 {
	buf := make([]float64, 0, len(targets)*TargetStride)
	for _, t := range targets {
		buf = append(buf, t.Lat, t.Lon, t.RadiusMeters)
	}
	return buf
}

// PackTrack flattens a track into a row-major buffer with TrackStride
// values per sample.
func PackTrack(track Track) []float64 {
	buf := make([]float64, 0, len(track)*TrackStride)
	for _, s := range track {
		buf = append(buf, s.Lat, s.Lon)
	}
	return buf
}

// AnyTouchedPacked reports whether at least one packed target is touched by
// the packed track. Trailing values short of a full stride are ignored.
func AnyTouchedPacked(targets, track []float64) bool {
	for i := 0; i+TargetStride <= len(targets); i += TargetStride {
		if packedTouched(targets[i], targets[i+1], targets[i+2], track) {
			return true
		}
	}
	return false
}

// AllTouchedPacked reports whether every packed target is touched by the
// packed track. An empty targets buffer is vacuously all-touched.
func AllTouchedPacked(targets, track []float64) bool {
	for i := 0; i+TargetStride <= len(targets); i += TargetStride {
		if !packedTouched(targets[i], targets[i+1], targets[i+2], track) {
			return false
		}
	}
	return true
}

// packedTouched scans the packed track for a sample within radiusM of
// (lat, lon), stopping at the first hit. The target-side radian conversion
// and cosine are hoisted out of the inner loop; the remaining arithmetic
// mirrors Distance operation for operation so the two evaluator
// implementations cannot diverge.
func packedTouched(lat, lon, radiusM float64, track []float64) bool {
	radiusKM := radiusM / 1000
	lat1 := lat * degToRad
	cosLat1 := math.Cos(lat1)
	for i := 0; i+TrackStride <= len(track); i += TrackStride {
		dLat := (track[i] - lat) * degToRad
		dLon := (track[i+1] - lon) * degToRad
		lat2 := track[i] * degToRad
		h := math.Sin(dLat/2)*math.Sin(dLat/2) +
			cosLat1*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
		if 2*EarthRadiusKM*math.Asin(math.Sqrt(clamp01(h))) <= radiusKM {
			return true
		}
	}
	return false
}

// packedEvaluator is the accelerated implementation: inputs are flattened
// once into contiguous buffers, then matched with a flat scan that avoids
// per-sample struct traversal and repeated target-side trigonometry.
type packedEvaluator struct{}

func (packedEvaluator) Name() string { return "packed" }

func (packedEvaluator) AnyTouched(targets []Target, track Track) bool {
	return AnyTouchedPacked(PackTargets(targets), PackTrack(track))
}

func (packedEvaluator) AllTouched(targets []Target, track Track) bool {
	return AllTouchedPacked(PackTargets(targets), PackTrack(track))
}
