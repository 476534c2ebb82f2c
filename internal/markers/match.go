package markers

import (
	"fmt"
	"time"

	"github.com/tracklab/stravatag/internal/geo"
)

// Matches reports whether v falls in the category's range: inclusive at
// Min, exclusive at Max, unbounded where a bound is nil.
func (c NumericCategory) Matches(v float64) bool {
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v >= *c.Max {
		return false
	}
	return true
}

// Matches reports whether the wall-clock time of t falls in the window,
// inclusive at From and exclusive at To. Windows that wrap past midnight
// (2300 -> 0100) cover [From, 2400) plus [0000, To). An unset window
// matches any time.
func (c StartTimeCategory) Matches(t time.Time) bool {
	if c.From == "" {
		return true
	}
	minutes := t.Hour()*60 + t.Minute()
	from := hhmmToMinutes(c.From)
	to := hhmmToMinutes(c.To)
	if from < to {
		return minutes >= from && minutes < to
	}
	return minutes >= from || minutes < to
}

// hhmmToMinutes converts a validated HHMM string to minutes since 0000.
func hhmmToMinutes(hhmm string) int {
	return (int(hhmm[0]-'0')*10+int(hhmm[1]-'0'))*60 + int(hhmm[2]-'0')*10 + int(hhmm[3]-'0')
}

// Matches reports whether the date of t matches the pattern, with
// asterisk fields matching anything. An empty pattern matches any date.
func (c DateCategory) Matches(t time.Time) bool {
	if c.Date == "" {
		return true
	}
	fields := [3]string{
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
	}
	start := 0
	for i := 0; i < 3; i++ {
		end := len(c.Date)
		if i < 2 {
			end = indexAfter(c.Date, start, '-')
		}
		field := c.Date[start:end]
		if field != "*" && field != fields[i] {
			return false
		}
		start = end + 1
	}
	return true
}

// Matches reports whether the track passes through every route point and
// avoids every blacklist point.
func (r RouteMarker) Matches(eval geo.Evaluator, track geo.Track) bool {
	return eval.AllTouched(r.Targets(), track) && !eval.AnyTouched(r.BlacklistTargets(), track)
}
