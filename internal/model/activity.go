// Package model defines the activity domain types shared across the
// pipeline.
package model

import (
	"time"

	"github.com/tracklab/stravatag/internal/geo"
)

// Activity holds the metrics of a fetched Strava activity that templates
// can match against, plus its recorded GPS track.
type Activity struct {
	ID          int64
	Name        string
	Description string
	SportType   string

	// DistanceKM is converted from Strava's meters at ingestion.
	DistanceKM   float64
	MovingTimeS  int
	ElapsedTimeS int

	// StartTimeLocal is the athlete-local start time with the zone
	// offset stripped, so HHMM and date markers compare against wall
	// clock time wherever the activity happened.
	StartTimeLocal time.Time

	ElevationGainM float64

	// AverageCadence is in both-feet steps per minute (Strava reports
	// single-foot revolutions; the client doubles it at ingestion).
	AverageCadence float64

	AverageHeartRate float64

	Track geo.Track
}

// PaceSecPerKM returns the average moving pace in seconds per kilometer,
// or 0 for zero-distance activities.
func (a Activity) PaceSecPerKM() float64 {
	if a.DistanceKM <= 0 {
		return 0
	}
	return float64(a.MovingTimeS) / a.DistanceKM
}

// ElevationPerKM returns meters climbed per kilometer, or 0 for
// zero-distance activities.
func (a Activity) ElevationPerKM() float64 {
	if a.DistanceKM <= 0 {
		return 0
	}
	return a.ElevationGainM / a.DistanceKM
}
