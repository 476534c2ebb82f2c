// Package markers defines the activity marker configuration: per-metric
// category ranges, date and start-time patterns, and geo route templates
// that decide which title and description an activity receives.
package markers

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tracklab/stravatag/internal/geo"
)

// Markers holds every configured marker, keyed by marker name within each
// metric. All maps may be empty.
type Markers struct {
	Distance       map[string][]NumericCategory   `yaml:"distance"`
	MovingTime     map[string][]NumericCategory   `yaml:"moving_time"`
	ElapsedTime    map[string][]NumericCategory   `yaml:"elapsed_time"`
	Pace           map[string][]NumericCategory   `yaml:"pace"`
	StartTime      map[string][]StartTimeCategory `yaml:"start_time"`
	Date           map[string][]DateCategory      `yaml:"date"`
	Elevation      map[string][]NumericCategory   `yaml:"elevation"`
	ElevationPerKM map[string][]NumericCategory   `yaml:"elevation_per_km"`
	Cadence        map[string][]NumericCategory   `yaml:"cadence"`
	Routes         map[string]RouteMarker         `yaml:"routes"`
}

// NumericCategory matches a metric value against a half-open numeric
// range. A nil Min with a non-nil Max is rejected by validation; both nil
// means the category matches any value.
type NumericCategory struct {
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Title       Options  `yaml:"title"`
	Description Options  `yaml:"description"`
}

// StartTimeCategory matches the activity's local start time against a
// 24-hour HHMM window. Windows may wrap past midnight (2300 -> 0100).
// Empty From and To match any start time.
type StartTimeCategory struct {
	From        string  `yaml:"from"`
	To          string  `yaml:"to"`
	Title       Options `yaml:"title"`
	Description Options `yaml:"description"`
}

// DateCategory matches the activity date against a YYYY-MM-DD pattern
// where each field may be an asterisk placeholder: "*-12-25" captures
// December 25th of any year. An empty pattern matches any date.
type DateCategory struct {
	Date        string  `yaml:"date"`
	Title       Options `yaml:"title"`
	Description Options `yaml:"description"`
}

// RouteMarker matches an activity whose track touches every point of the
// route and none of the blacklist.
type RouteMarker struct {
	Points      []RoutePoint `yaml:"points"`
	Blacklist   []RoutePoint `yaml:"blacklist"`
	Title       Options      `yaml:"title"`
	Description Options      `yaml:"description"`
}

// RoutePoint is a route coordinate with an optional tolerance radius;
// omitted radii default to geo.DefaultRadiusMeters.
type RoutePoint struct {
	Lat     float64  `yaml:"lat"`
	Lon     float64  `yaml:"lon"`
	RadiusM *float64 `yaml:"radius_m"`
}

// Target converts the route point to a geo target, applying the default
// radius here at the configuration boundary.
func (p RoutePoint) Target() geo.Target {
	radius := geo.DefaultRadiusMeters
	if p.RadiusM != nil {
		radius = *p.RadiusM
	}
	return geo.Target{Point: geo.Point{Lat: p.Lat, Lon: p.Lon}, RadiusMeters: radius}
}

// Targets converts the route's must-touch points to geo targets.
func (r RouteMarker) Targets() []geo.Target {
	return toTargets(r.Points)
}

// BlacklistTargets converts the route's must-not-touch points to geo
// targets.
func (r RouteMarker) BlacklistTargets() []geo.Target {
	return toTargets(r.Blacklist)
}

func toTargets(points []RoutePoint) []geo.Target {
	targets := make([]geo.Target, 0, len(points))
	for _, p := range points {
		targets = append(targets, p.Target())
	}
	return targets
}

// Options is a title or description choice: a single string or a
// non-empty list to pick from at random.
type Options []string

// UnmarshalYAML accepts either a scalar string or a sequence of strings.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return eris.Wrap(err, "markers: decode option")
		}
		*o = Options{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return eris.Wrap(err, "markers: decode option list")
		}
		*o = Options(list)
		return nil
	default:
		return eris.New("markers: title/description must be a string or list of strings")
	}
}

// Load reads and validates a markers file. A missing path yields empty
// markers: running without templates is allowed, it just never renames
// anything.
func Load(path string) (*Markers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Markers{}, nil
		}
		return nil, eris.Wrapf(err, "markers: read %s", path)
	}

	var m Markers
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "markers: parse %s", path)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
