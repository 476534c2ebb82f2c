// Package generate turns a matched activity into a title and description
// using the configured markers.
package generate

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tracklab/stravatag/internal/geo"
	"github.com/tracklab/stravatag/internal/markers"
	"github.com/tracklab/stravatag/internal/model"
)

// ErrNoMatch indicates no marker applies to the activity, which is left
// untouched.
var ErrNoMatch = eris.New("generate: no matching marker")

// Result is a generated title/description pair. An empty field means the
// corresponding activity field should be left as is.
type Result struct {
	Title       string
	Description string
}

// Option configures the engine.
type Option func(*Engine)

// WithHRZones supplies heart rate zone thresholds for the {hr_zone}
// placeholder, keyed "1" through "5".
func WithHRZones(zones map[string]int) Option {
	return func(e *Engine) {
		e.hrZones = zones
	}
}

// WithPick overrides the random option picker (for testing).
func WithPick(pick func(n int) int) Option {
	return func(e *Engine) {
		e.pick = pick
	}
}

// Engine evaluates markers against activities.
type Engine struct {
	eval    geo.Evaluator
	hrZones map[string]int
	pick    func(n int) int
}

// New creates a generation engine using the given route evaluator.
func New(eval geo.Evaluator, opts ...Option) *Engine {
	e := &Engine{
		eval: eval,
		pick: rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// candidate is one matched marker category.
type candidate struct {
	title       markers.Options
	description markers.Options
}

// Generate produces a title and description for the activity from the
// first markers that match it. Route markers take priority for the title;
// descriptions of every matching marker are stacked. Returns ErrNoMatch
// when nothing matches.
func (e *Engine) Generate(act model.Activity, m markers.Markers) (*Result, error) {
	cands := e.collect(act, m)
	if len(cands) == 0 {
		return nil, ErrNoMatch
	}

	var title string
	for _, c := range cands {
		if len(c.title) > 0 {
			title = c.title[e.pick(len(c.title))]
			break
		}
	}

	var descriptions []string
	for _, c := range cands {
		if len(c.description) > 0 {
			descriptions = append(descriptions, c.description[e.pick(len(c.description))])
		}
	}

	if title == "" && len(descriptions) == 0 {
		return nil, ErrNoMatch
	}

	res := &Result{
		Description: e.expand(strings.Join(descriptions, "\n"), act),
	}
	if title != "" {
		caser := cases.Title(language.English)
		res.Title = caser.String(e.expand(title, act))
	}
	return res, nil
}

// collect gathers matching categories, routes first, then the numeric and
// temporal metrics in a fixed order so output is reproducible.
func (e *Engine) collect(act model.Activity, m markers.Markers) []candidate {
	var cands []candidate

	for _, name := range sortedKeys(m.Routes) {
		route := m.Routes[name]
		if route.Matches(e.eval, act.Track) {
			cands = append(cands, candidate{route.Title, route.Description})
		}
	}

	numeric := []struct {
		table map[string][]markers.NumericCategory
		value float64
	}{
		{m.Distance, act.DistanceKM},
		{m.MovingTime, float64(act.MovingTimeS)},
		{m.ElapsedTime, float64(act.ElapsedTimeS)},
		{m.Pace, act.PaceSecPerKM()},
		{m.Elevation, act.ElevationGainM},
		{m.ElevationPerKM, act.ElevationPerKM()},
		{m.Cadence, act.AverageCadence},
	}
	for _, metric := range numeric {
		for _, name := range sortedKeys(metric.table) {
			for _, cat := range metric.table[name] {
				if cat.Matches(metric.value) {
					cands = append(cands, candidate{cat.Title, cat.Description})
					break
				}
			}
		}
	}

	for _, name := range sortedKeys(m.StartTime) {
		for _, cat := range m.StartTime[name] {
			if cat.Matches(act.StartTimeLocal) {
				cands = append(cands, candidate{cat.Title, cat.Description})
				break
			}
		}
	}

	for _, name := range sortedKeys(m.Date) {
		for _, cat := range m.Date[name] {
			if cat.Matches(act.StartTimeLocal) {
				cands = append(cands, candidate{cat.Title, cat.Description})
				break
			}
		}
	}

	return cands
}

// expand substitutes activity metric placeholders in a template.
func (e *Engine) expand(template string, act model.Activity) string {
	if !strings.Contains(template, "{") {
		return template
	}
	r := strings.NewReplacer(
		"{name}", act.Name,
		"{distance}", fmt.Sprintf("%.2f", act.DistanceKM),
		"{moving_time}", formatDuration(act.MovingTimeS),
		"{elapsed_time}", formatDuration(act.ElapsedTimeS),
		"{pace}", formatPace(act.PaceSecPerKM()),
		"{elevation}", fmt.Sprintf("%.0f", act.ElevationGainM),
		"{elevation_per_km}", fmt.Sprintf("%.1f", act.ElevationPerKM()),
		"{cadence}", fmt.Sprintf("%.0f", act.AverageCadence),
		"{heart_rate}", fmt.Sprintf("%.0f", act.AverageHeartRate),
		"{hr_zone}", e.hrZone(act.AverageHeartRate),
		"{date}", act.StartTimeLocal.Format("2006-01-02"),
		"{start_time}", act.StartTimeLocal.Format("15:04"),
	)
	return r.Replace(template)
}

// hrZone maps an average heart rate to the highest configured zone whose
// threshold it reaches.
func (e *Engine) hrZone(heartRate float64) string {
	if len(e.hrZones) == 0 || heartRate <= 0 {
		return "?"
	}
	zone := 1
	for z := 1; z <= 5; z++ {
		threshold, ok := e.hrZones[strconv.Itoa(z)]
		if ok && heartRate >= float64(threshold) {
			zone = z
		}
	}
	return strconv.Itoa(zone)
}

// formatDuration renders seconds as H:MM:SS, or M:SS under an hour.
func formatDuration(seconds int) string {
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatPace renders seconds-per-km as M:SS/km.
func formatPace(secPerKM float64) string {
	total := int(secPerKM + 0.5)
	return fmt.Sprintf("%d:%02d/km", total/60, total%60)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
