package markers

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// Validate deep-checks every marker. The geo matching core performs no
// validation of its own, so coordinate ranges and radius positivity are
// enforced here, at the configuration boundary.
func (m *Markers) Validate() error {
	numericMetrics := []struct {
		name    string
		markers map[string][]NumericCategory
		intOnly bool
	}{
		{"distance", m.Distance, false},
		{"moving_time", m.MovingTime, true},
		{"elapsed_time", m.ElapsedTime, true},
		{"pace", m.Pace, false},
		{"elevation", m.Elevation, false},
		{"elevation_per_km", m.ElevationPerKM, false},
		{"cadence", m.Cadence, false},
	}
	for _, metric := range numericMetrics {
		for key, categories := range metric.markers {
			if !validKey(key) {
				return eris.Errorf("markers: %s marker key %q must be alphanumeric (underscores allowed)", metric.name, key)
			}
			for _, c := range categories {
				if err := c.validate(metric.name, metric.intOnly); err != nil {
					return err
				}
			}
		}
	}

	for key, categories := range m.StartTime {
		if !validKey(key) {
			return eris.Errorf("markers: start_time marker key %q must be alphanumeric (underscores allowed)", key)
		}
		for _, c := range categories {
			if err := c.validate(); err != nil {
				return err
			}
		}
	}

	for key, categories := range m.Date {
		if !validKey(key) {
			return eris.Errorf("markers: date marker key %q must be alphanumeric (underscores allowed)", key)
		}
		for _, c := range categories {
			if err := c.validate(); err != nil {
				return err
			}
		}
	}

	for key, route := range m.Routes {
		if !validKey(key) {
			return eris.Errorf("markers: route marker key %q must be alphanumeric (underscores allowed)", key)
		}
		if err := route.validate(key); err != nil {
			return err
		}
	}

	return nil
}

// validKey accepts non-empty alphanumeric keys; underscores are allowed
// anywhere, including keys made only of underscores.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alnum && r != '_' {
			return false
		}
	}
	return true
}

func (c NumericCategory) validate(metric string, intOnly bool) error {
	if c.Min == nil && c.Max != nil {
		return eris.Errorf("markers: min %s cannot be null alone", metric)
	}
	if c.Min != nil {
		if *c.Min < 0 {
			return eris.Errorf("markers: min %s must be non-negative", metric)
		}
		if intOnly && *c.Min != math.Trunc(*c.Min) {
			return eris.Errorf("markers: min %s must be an integer", metric)
		}
	}
	if c.Max != nil {
		if intOnly && *c.Max != math.Trunc(*c.Max) {
			return eris.Errorf("markers: max %s must be an integer", metric)
		}
		if *c.Max <= *c.Min {
			return eris.Errorf("markers: max %s must be greater than min %s", metric, metric)
		}
	}
	return validateOptions(metric, c.Title, c.Description)
}

func (c StartTimeCategory) validate() error {
	if (c.From == "") != (c.To == "") {
		return eris.New("markers: start_time from and to must be set together")
	}
	if c.From != "" {
		if !validHHMM(c.From) {
			return eris.Errorf("markers: start_time from %q must be a 24-hour HHMM string", c.From)
		}
		if !validHHMM(c.To) {
			return eris.Errorf("markers: start_time to %q must be a 24-hour HHMM string", c.To)
		}
		if c.From == c.To {
			return eris.New("markers: start_time from must not equal to")
		}
	}
	return validateOptions("start_time", c.Title, c.Description)
}

func validHHMM(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[2]-'0')*10 + int(s[3]-'0')
	return hh <= 23 && mm <= 59
}

func (c DateCategory) validate() error {
	if c.Date != "" && !validDatePattern(c.Date) {
		return eris.Errorf("markers: date %q must be a YYYY-MM-DD string (asterisk placeholders allowed)", c.Date)
	}
	return validateOptions("date", c.Title, c.Description)
}

// validDatePattern checks a YYYY-MM-DD pattern where each field may be an
// asterisk. Placeholder fields are substituted with permissive values (a
// leap year, a 31-day month, day 1) so that the remaining concrete fields
// still have to form a real calendar date.
func validDatePattern(pattern string) bool {
	var year, month, day string
	parts := [3]*string{&year, &month, &day}
	lengths := [3]int{4, 2, 2}

	start := 0
	for i := 0; i < 3; i++ {
		end := len(pattern)
		if i < 2 {
			end = indexAfter(pattern, start, '-')
			if end < 0 {
				return false
			}
		}
		*parts[i] = pattern[start:end]
		start = end + 1
	}

	if year == "*" {
		year = "2024"
	}
	if month == "*" {
		month = "01"
	}
	if day == "*" {
		day = "01"
	}
	for i, field := range [3]string{year, month, day} {
		if len(field) != lengths[i] {
			return false
		}
	}

	_, err := time.Parse("2006-01-02", year+"-"+month+"-"+day)
	return err == nil
}

func indexAfter(s string, start int, sep byte) int {
	for i := start; i < len(s); i++ {
		if s[i] == sep {
			return i
		}
	}
	return -1
}

func (r RouteMarker) validate(key string) error {
	if len(r.Points) == 0 {
		return eris.Errorf("markers: route %q must have at least one point", key)
	}
	for _, p := range append(append([]RoutePoint{}, r.Points...), r.Blacklist...) {
		if p.Lat < -90 || p.Lat > 90 {
			return eris.Errorf("markers: route %q latitude %v out of range [-90, 90]", key, p.Lat)
		}
		if p.Lon < -180 || p.Lon > 180 {
			return eris.Errorf("markers: route %q longitude %v out of range [-180, 180]", key, p.Lon)
		}
		if p.RadiusM != nil && *p.RadiusM <= 0 {
			return eris.Errorf("markers: route %q radius must be positive", key)
		}
	}
	return validateOptions("route", r.Title, r.Description)
}

func validateOptions(metric string, title, description Options) error {
	for _, opts := range []Options{title, description} {
		for _, o := range opts {
			if o == "" {
				return eris.Errorf("markers: %s title/description options must be non-empty strings", metric)
			}
		}
	}
	return nil
}
