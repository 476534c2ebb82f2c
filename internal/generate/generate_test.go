package generate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklab/stravatag/internal/geo"
	"github.com/tracklab/stravatag/internal/markers"
	"github.com/tracklab/stravatag/internal/model"
)

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eval, err := geo.Select(geo.ModeAuto)
	require.NoError(t, err)

	opts = append([]Option{WithPick(func(n int) int { return 0 })}, opts...)
	return New(eval, opts...)
}

func testActivity() model.Activity {
	return model.Activity{
		ID:               101,
		Name:             "Lunch Run",
		SportType:        "Run",
		DistanceKM:       10.0,
		MovingTimeS:      3000,
		ElapsedTimeS:     3100,
		StartTimeLocal:   time.Date(2025, 12, 25, 7, 30, 0, 0, time.UTC),
		ElevationGainM:   120,
		AverageCadence:   164,
		AverageHeartRate: 152,
	}
}

func f(v float64) *float64 { return &v }

func TestGenerate_NoMarkers(t *testing.T) {
	t.Parallel()

	_, err := testEngine(t).Generate(testActivity(), markers.Markers{})
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestGenerate_NumericMatch(t *testing.T) {
	t.Parallel()

	m := markers.Markers{
		Distance: map[string][]markers.NumericCategory{
			"run_bands": {
				{Min: f(0), Max: f(5), Title: markers.Options{"short run"}},
				{Min: f(5), Max: f(15), Title: markers.Options{"solid {distance} km"}, Description: markers.Options{"kept it moving for {moving_time}"}},
			},
		},
	}

	res, err := testEngine(t).Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "Solid 10.00 Km", res.Title)
	assert.Equal(t, "kept it moving for 50:00", res.Description)
}

func TestGenerate_FirstCategoryWinsPerMarker(t *testing.T) {
	t.Parallel()

	m := markers.Markers{
		Pace: map[string][]markers.NumericCategory{
			"pace_bands": {
				{Min: f(0), Max: f(240), Title: markers.Options{"fast"}},
				{Min: f(240), Max: f(400), Title: markers.Options{"steady {pace}"}},
				{Min: f(0), Max: nil, Title: markers.Options{"any pace"}},
			},
		},
	}

	// 3000 s over 10 km = 300 s/km, second band.
	res, err := testEngine(t).Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "Steady 5:00/Km", res.Title)
}

func TestGenerate_RouteTitlePriority(t *testing.T) {
	t.Parallel()

	act := testActivity()
	act.Track = geo.Track{{Lat: 51.5074, Lon: -0.1278}}

	m := markers.Markers{
		Distance: map[string][]markers.NumericCategory{
			"any": {{Title: markers.Options{"numeric title"}}},
		},
		Routes: map[string]markers.RouteMarker{
			"embankment": {
				Points: []markers.RoutePoint{{Lat: 51.5074, Lon: -0.1278}},
				Title:  markers.Options{"embankment loop"},
			},
		},
	}

	res, err := testEngine(t).Generate(act, m)
	require.NoError(t, err)
	assert.Equal(t, "Embankment Loop", res.Title)
}

func TestGenerate_RouteBlacklistBlocks(t *testing.T) {
	t.Parallel()

	act := testActivity()
	act.Track = geo.Track{{Lat: 51.5074, Lon: -0.1278}}

	m := markers.Markers{
		Routes: map[string]markers.RouteMarker{
			"embankment": {
				Points:    []markers.RoutePoint{{Lat: 51.5074, Lon: -0.1278}},
				Blacklist: []markers.RoutePoint{{Lat: 51.5074, Lon: -0.1278}},
				Title:     markers.Options{"embankment loop"},
			},
		},
	}

	_, err := testEngine(t).Generate(act, m)
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestGenerate_DescriptionsStack(t *testing.T) {
	t.Parallel()

	m := markers.Markers{
		Distance: map[string][]markers.NumericCategory{
			"any": {{Description: markers.Options{"distance note"}}},
		},
		Date: map[string][]markers.DateCategory{
			"christmas": {{Date: "*-12-25", Title: markers.Options{"christmas run"}, Description: markers.Options{"ho ho ho"}}},
		},
	}

	res, err := testEngine(t).Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "Christmas Run", res.Title)
	assert.Equal(t, "distance note\nho ho ho", res.Description)
}

func TestGenerate_StartTimeWindow(t *testing.T) {
	t.Parallel()

	m := markers.Markers{
		StartTime: map[string][]markers.StartTimeCategory{
			"early": {{From: "0500", To: "0900", Title: markers.Options{"dawn patrol at {start_time}"}}},
		},
	}

	res, err := testEngine(t).Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "Dawn Patrol At 07:30", res.Title)
}

func TestGenerate_PickIsUsed(t *testing.T) {
	t.Parallel()

	m := markers.Markers{
		Distance: map[string][]markers.NumericCategory{
			"any": {{Title: markers.Options{"first", "second", "third"}}},
		},
	}

	e := testEngine(t, WithPick(func(n int) int { return n - 1 }))
	res, err := e.Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "Third", res.Title)
}

func TestGenerate_HRZonePlaceholder(t *testing.T) {
	t.Parallel()

	zones := map[string]int{"1": 110, "2": 130, "3": 150, "4": 170, "5": 185}
	m := markers.Markers{
		Cadence: map[string][]markers.NumericCategory{
			"any": {{Description: markers.Options{"zone {hr_zone} effort at {heart_rate} bpm"}}},
		},
	}

	e := testEngine(t, WithHRZones(zones))
	res, err := e.Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "zone 3 effort at 152 bpm", res.Description)
}

func TestGenerate_HRZoneUnknown(t *testing.T) {
	t.Parallel()

	m := markers.Markers{
		Cadence: map[string][]markers.NumericCategory{
			"any": {{Description: markers.Options{"zone {hr_zone}"}}},
		},
	}

	res, err := testEngine(t).Generate(testActivity(), m)
	require.NoError(t, err)
	assert.Equal(t, "zone ?", res.Description)
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0:45", formatDuration(45))
	assert.Equal(t, "50:00", formatDuration(3000))
	assert.Equal(t, "1:00:01", formatDuration(3601))
}

func TestFormatPace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5:00/km", formatPace(300))
	assert.Equal(t, "4:30/km", formatPace(269.6))
}
