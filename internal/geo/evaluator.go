package geo

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Evaluator answers whether a track touches any or all of a target set. A
// target is touched when some sample lies within its radius, inclusive at
// the boundary. Two conforming implementations exist — a packed buffer scan
// and a portable reference — and for identical inputs they must return
// identical booleans.
//
// Evaluators are stateless and safe for concurrent use.
type Evaluator interface {
	// Name identifies the implementation.
	Name() string

	// AnyTouched reports whether at least one target is touched by the
	// track. An empty target set touches nothing.
	AnyTouched(targets []Target, track Track) bool

	// AllTouched reports whether every target is touched by the track. An
	// empty target set is vacuously all-touched, which makes blacklist
	// semantics (!AnyTouched) behave when no blacklist is configured.
	AllTouched(targets []Target, track Track) bool
}

// Mode selects which evaluator implementation Select returns.
type Mode string

const (
	// ModeAuto prefers the packed implementation, falling back to the
	// reference one if the packed self-check fails.
	ModeAuto Mode = "auto"
	// ModePacked forces the packed buffer implementation.
	ModePacked Mode = "packed"
	// ModeReference forces the portable reference implementation.
	ModeReference Mode = "reference"
)

// candidate pairs an evaluator with an availability probe. Probes run once
// per process, at selection time.
type candidate struct {
	eval      Evaluator
	available func() bool
}

func candidates() []candidate {
	return []candidate{
		{eval: packedEvaluator{}, available: packedAvailable},
		{eval: referenceEvaluator{}, available: func() bool { return true }},
	}
}

// Select returns the evaluator for mode. In ModeAuto the candidates are
// probed in preference order and the first available one wins; callers see
// no difference beyond latency.
func Select(mode Mode) (Evaluator, error) {
	switch mode {
	case ModePacked:
		return packedEvaluator{}, nil
	case ModeReference:
		return referenceEvaluator{}, nil
	case ModeAuto, "":
		for _, c := range candidates() {
			if c.available() {
				return c.eval, nil
			}
		}
		// Unreachable: the reference candidate is always available.
		return referenceEvaluator{}, nil
	default:
		return nil, eris.Errorf("geo: unknown evaluator mode %q", mode)
	}
}

var packedProbe struct {
	once sync.Once
	ok   bool
}

// packedAvailable runs a one-time self-check of the packed path against the
// reference implementation on fixed inputs. A mismatch disables the packed
// evaluator for the life of the process.
func packedAvailable() bool {
	packedProbe.once.Do(func() {
		targets := []Target{
			{Point: Point{Lat: 51.5074, Lon: -0.1278}, RadiusMeters: 500},
			{Point: Point{Lat: 48.8566, Lon: 2.3522}, RadiusMeters: 25},
		}
		track := Track{{Lat: 51.5080, Lon: -0.1290}, {Lat: 50.1109, Lon: 8.6821}}

		packed, reference := packedEvaluator{}, referenceEvaluator{}
		packedProbe.ok = packed.AnyTouched(targets, track) == reference.AnyTouched(targets, track) &&
			packed.AllTouched(targets, track) == reference.AllTouched(targets, track) &&
			packed.AllTouched(nil, track) && !packed.AnyTouched(nil, track)
		if !packedProbe.ok {
			zap.L().Warn("packed evaluator failed self-check, using reference implementation")
		}
	})
	return packedProbe.ok
}
