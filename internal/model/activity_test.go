package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivity_PaceSecPerKM(t *testing.T) {
	t.Parallel()

	a := Activity{DistanceKM: 10, MovingTimeS: 3000}
	assert.InDelta(t, 300, a.PaceSecPerKM(), 1e-9) // 5:00/km

	zero := Activity{MovingTimeS: 3000}
	assert.Zero(t, zero.PaceSecPerKM())
}

func TestActivity_ElevationPerKM(t *testing.T) {
	t.Parallel()

	a := Activity{DistanceKM: 8, ElevationGainM: 120}
	assert.InDelta(t, 15, a.ElevationPerKM(), 1e-9)

	zero := Activity{ElevationGainM: 120}
	assert.Zero(t, zero.ElevationPerKM())
}
