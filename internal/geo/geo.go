// Package geo implements great-circle containment matching between target
// points and recorded GPS tracks: given a set of targets (each with a
// tolerance radius) and the samples of an activity, decide whether the
// track touches any target or all of them.
package geo

import "math"

// EarthRadiusKM is the WGS-84 equatorial radius in kilometers. The matcher
// has always been calibrated against this value rather than a mean radius
// (~6371 km); the resulting bias is under 0.3% and kept for compatibility.
const EarthRadiusKM = 6378.137

// DefaultRadiusMeters is the tolerance applied when a route point omits an
// explicit radius. Defaulting happens at the configuration boundary; the
// matching core accepts whatever radius it is handed.
const DefaultRadiusMeters = 25.0

const degToRad = math.Pi / 180

// Point is a geographic coordinate in degrees. Latitude is expected in
// [-90, 90] and longitude in [-180, 180], but the core performs no range
// checks: out-of-range values yield a finite, meaningless distance.
type Point struct {
	Lat float64
	Lon float64
}

// Target is a point a track must (or must not) come within RadiusMeters of.
type Target struct {
	Point
	RadiusMeters float64
}

// Track is the sequence of GPS samples recorded during an activity, in
// temporal order. Matching ignores the order; only distance membership
// matters.
type Track []Point

// Distance returns the haversine great-circle distance between a and b in
// kilometers. It never fails: the haversine intermediate is clamped to
// [0, 1] before the square root and arcsine, so floating-point rounding on
// coincident or near-antipodal points cannot push asin out of its domain.
func Distance(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * degToRad
	dLon := (b.Lon - a.Lon) * degToRad
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(clamp01(h)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
