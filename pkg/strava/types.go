package strava

// LatLng is a single track sample as returned by the streams endpoint.
type LatLng struct {
	Lat float64
	Lng float64
}

// PolylineMap holds the encoded polylines attached to an activity.
type PolylineMap struct {
	ID              string `json:"id"`
	Polyline        string `json:"polyline"`
	SummaryPolyline string `json:"summary_polyline"`
}

// SummaryActivity is the condensed representation returned by the
// athlete activities listing.
type SummaryActivity struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	SportType          string      `json:"sport_type"`
	DistanceM          float64     `json:"distance"`
	MovingTimeS        int         `json:"moving_time"`
	ElapsedTimeS       int         `json:"elapsed_time"`
	StartDateLocal     string      `json:"start_date_local"`
	TotalElevationGain float64     `json:"total_elevation_gain"`
	Map                PolylineMap `json:"map"`
}

// DetailedActivity is the full representation of a single activity.
type DetailedActivity struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	SportType          string      `json:"sport_type"`
	DistanceM          float64     `json:"distance"`
	MovingTimeS        int         `json:"moving_time"`
	ElapsedTimeS       int         `json:"elapsed_time"`
	StartDateLocal     string      `json:"start_date_local"`
	TotalElevationGain float64     `json:"total_elevation_gain"`
	AverageCadence     float64     `json:"average_cadence"`
	AverageHeartrate   float64     `json:"average_heartrate"`
	Map                PolylineMap `json:"map"`
}

// UpdateRequest carries the mutable activity fields. Nil fields are left
// untouched.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type streamSet struct {
	LatLng struct {
		Data [][]float64 `json:"data"`
	} `json:"latlng"`
}
