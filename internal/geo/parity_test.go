package geo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParity_RandomCorpus fuzzes both evaluator implementations with the
// same generated inputs and requires boolean agreement on every one. The
// corpus deliberately includes degenerate shapes: empty and single-sample
// tracks, duplicated points, targets at the poles and across the ±180°
// longitude seam, and radii from centimeters to tens of kilometers.
func TestParity_RandomCorpus(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 1))
	packed, reference := packedEvaluator{}, referenceEvaluator{}

	for i := 0; i < 2000; i++ {
		targets := randomTargets(rng)
		track := randomTrack(rng, targets)

		assert.Equal(t,
			reference.AnyTouched(targets, track),
			packed.AnyTouched(targets, track),
			"AnyTouched diverged: iteration %d targets=%v track=%v", i, targets, track)
		assert.Equal(t,
			reference.AllTouched(targets, track),
			packed.AllTouched(targets, track),
			"AllTouched diverged: iteration %d targets=%v track=%v", i, targets, track)
	}
}

// TestParity_PackedBuffersMatchStructAPI checks that the exported buffer
// entry points agree with the struct-level API on the same inputs.
func TestParity_PackedBuffersMatchStructAPI(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 7))
	reference := referenceEvaluator{}

	for i := 0; i < 500; i++ {
		targets := randomTargets(rng)
		track := randomTrack(rng, targets)
		packedTargets, packedTrack := PackTargets(targets), PackTrack(track)

		assert.Equal(t, reference.AnyTouched(targets, track), AnyTouchedPacked(packedTargets, packedTrack), "iteration %d", i)
		assert.Equal(t, reference.AllTouched(targets, track), AllTouchedPacked(packedTargets, packedTrack), "iteration %d", i)
	}
}

func randomTargets(rng *rand.Rand) []Target {
	n := rng.IntN(6) // 0..5, empty sets included
	targets := make([]Target, 0, n)
	for i := 0; i < n; i++ {
		targets = append(targets, Target{
			Point:        randomPoint(rng),
			RadiusMeters: radiusScales[rng.IntN(len(radiusScales))] * (0.5 + rng.Float64()),
		})
	}
	return targets
}

// randomTrack biases samples toward the target positions so that touches
// actually occur: a fully uniform track almost never lands within a few
// meters of a target, which would leave the short-circuit paths untested.
func randomTrack(rng *rand.Rand, targets []Target) Track {
	n := rng.IntN(20) // 0..19, empty and single-sample tracks included
	track := make(Track, 0, n)
	for i := 0; i < n; i++ {
		if len(targets) > 0 && rng.IntN(3) == 0 {
			near := targets[rng.IntN(len(targets))]
			jitter := 0.001 * (rng.Float64() - 0.5)
			track = append(track, Point{Lat: near.Lat + jitter, Lon: near.Lon + jitter})
		} else {
			track = append(track, randomPoint(rng))
		}
		// Occasionally duplicate the previous sample.
		if len(track) > 0 && rng.IntN(5) == 0 {
			track = append(track, track[len(track)-1])
		}
	}
	return track
}

var radiusScales = []float64{0.1, 1, 25, 1000, 50000}

func randomPoint(rng *rand.Rand) Point {
	switch rng.IntN(6) {
	case 0: // near the poles
		lat := 89.9 + rng.Float64()*0.1
		if rng.IntN(2) == 0 {
			lat = -lat
		}
		return Point{Lat: lat, Lon: rng.Float64()*360 - 180}
	case 1: // hugging the ±180° longitude seam
		lon := 179.99 + rng.Float64()*0.01
		if rng.IntN(2) == 0 {
			lon = -lon
		}
		return Point{Lat: rng.Float64()*180 - 90, Lon: lon}
	default:
		return Point{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
	}
}
