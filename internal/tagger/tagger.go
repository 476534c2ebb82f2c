// Package tagger orchestrates one polling pass: fetch recent activities,
// skip the ones already processed, generate titles and descriptions, and
// push updates back to Strava.
package tagger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tracklab/stravatag/internal/generate"
	"github.com/tracklab/stravatag/internal/geo"
	"github.com/tracklab/stravatag/internal/markers"
	"github.com/tracklab/stravatag/internal/model"
	"github.com/tracklab/stravatag/internal/store"
	"github.com/tracklab/stravatag/pkg/strava"
)

// startDateLayout is the local start date without zone info; the offset
// suffix Strava appends is deliberately ignored so markers match wall
// clock time.
const startDateLayout = "2006-01-02T15:04:05"

// Option configures the tagger.
type Option func(*Tagger)

// WithConcurrency bounds how many unseen activities are processed at once.
func WithConcurrency(n int) Option {
	return func(t *Tagger) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// WithRecentCount sets how many recent activities each pass scans.
func WithRecentCount(n int) Option {
	return func(t *Tagger) {
		if n > 0 {
			t.recentCount = n
		}
	}
}

// Tagger runs polling passes.
type Tagger struct {
	client      strava.Client
	store       store.Store
	markers     *markers.Markers
	engine      *generate.Engine
	concurrency int
	recentCount int
}

// New creates a tagger.
func New(client strava.Client, st store.Store, m *markers.Markers, engine *generate.Engine, opts ...Option) *Tagger {
	t := &Tagger{
		client:      client,
		store:       st,
		markers:     m,
		engine:      engine,
		concurrency: 3,
		recentCount: 5,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PassResult summarizes one polling pass.
type PassResult struct {
	Checked int
	Tagged  int
}

// RunOnce performs a single polling pass and records it as a poll run.
// Every scanned activity is marked seen whether or not a marker matched,
// so it is never re-processed.
func (t *Tagger) RunOnce(ctx context.Context) (*PassResult, error) {
	run, err := t.store.StartPollRun(ctx)
	if err != nil {
		return nil, err
	}

	result, passErr := t.pass(ctx)
	if finishErr := t.store.FinishPollRun(ctx, run.ID, result.Checked, result.Tagged, passErr); finishErr != nil {
		zap.L().Warn("recording poll run failed", zap.Error(finishErr))
	}
	if passErr != nil {
		return nil, passErr
	}
	return result, nil
}

func (t *Tagger) pass(ctx context.Context) (*PassResult, error) {
	result := &PassResult{}

	recent, err := t.client.ListRecentActivities(ctx, t.recentCount)
	if err != nil {
		return result, err
	}

	var unseen []strava.SummaryActivity
	for _, a := range recent {
		seen, err := t.store.Seen(ctx, a.ID)
		if err != nil {
			return result, err
		}
		if !seen {
			unseen = append(unseen, a)
		}
	}
	result.Checked = len(unseen)
	if len(unseen) == 0 {
		zap.L().Debug("no new activities")
		return result, nil
	}

	var mu sync.Mutex
	var processed []store.SeenActivity
	tagged := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for _, summary := range unseen {
		g.Go(func() error {
			didTag, err := t.processActivity(gctx, summary.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			processed = append(processed, store.SeenActivity{
				ActivityID: summary.ID,
				Name:       summary.Name,
				TaggedAt:   time.Now().UTC(),
			})
			if didTag {
				tagged++
			}
			mu.Unlock()
			return nil
		})
	}
	groupErr := g.Wait()

	if err := t.store.MarkSeen(ctx, processed); err != nil {
		return result, err
	}
	if _, err := t.store.PruneSeen(ctx, store.SeenRetention); err != nil {
		return result, err
	}

	result.Tagged = tagged
	return result, groupErr
}

// processActivity fetches one activity and applies a generated title and
// description if any marker matches.
func (t *Tagger) processActivity(ctx context.Context, id int64) (bool, error) {
	detail, err := t.client.GetActivity(ctx, id)
	if err != nil {
		return false, err
	}
	stream, err := t.client.GetLatLngStream(ctx, id)
	if err != nil {
		return false, err
	}

	act, err := buildActivity(detail, stream)
	if err != nil {
		return false, err
	}

	res, err := t.engine.Generate(act, *t.markers)
	if errors.Is(err, generate.ErrNoMatch) {
		zap.L().Info("no marker matched", zap.Int64("activity", id), zap.String("name", act.Name))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	update := strava.UpdateRequest{}
	if res.Title != "" {
		update.Name = &res.Title
	}
	if res.Description != "" {
		update.Description = &res.Description
	}
	if err := t.client.UpdateActivity(ctx, id, update); err != nil {
		return false, err
	}

	zap.L().Info("activity tagged",
		zap.Int64("activity", id),
		zap.String("title", res.Title),
	)
	return true, nil
}

// buildActivity converts the Strava representation to the internal model.
// The latlng stream is the preferred track source; activities whose
// streams are unavailable fall back to the encoded summary polyline.
func buildActivity(detail *strava.DetailedActivity, stream []strava.LatLng) (model.Activity, error) {
	startTime, err := time.Parse(startDateLayout, trimZone(detail.StartDateLocal))
	if err != nil {
		return model.Activity{}, eris.Wrapf(err, "tagger: parse start date of activity %d", detail.ID)
	}

	track := make(geo.Track, 0, len(stream))
	for _, s := range stream {
		track = append(track, geo.Point{Lat: s.Lat, Lon: s.Lng})
	}
	if len(track) == 0 {
		track, err = decodeSummaryPolyline(detail.Map.SummaryPolyline)
		if err != nil {
			return model.Activity{}, eris.Wrapf(err, "tagger: decode polyline of activity %d", detail.ID)
		}
	}

	return model.Activity{
		ID:             detail.ID,
		Name:           detail.Name,
		Description:    detail.Description,
		SportType:      detail.SportType,
		DistanceKM:     detail.DistanceM / 1000,
		MovingTimeS:    detail.MovingTimeS,
		ElapsedTimeS:   detail.ElapsedTimeS,
		StartTimeLocal: startTime,
		ElevationGainM: detail.TotalElevationGain,
		// Strava reports one-foot cadence; markers use both-feet steps.
		AverageCadence:   detail.AverageCadence * 2,
		AverageHeartRate: detail.AverageHeartrate,
		Track:            track,
	}, nil
}

func trimZone(startDate string) string {
	if len(startDate) > len(startDateLayout) {
		return startDate[:len(startDateLayout)]
	}
	return startDate
}

func decodeSummaryPolyline(encoded string) (geo.Track, error) {
	if encoded == "" {
		return geo.Track{}, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	track := make(geo.Track, 0, len(coords))
	for _, c := range coords {
		track = append(track, geo.Point{Lat: c[0], Lon: c[1]})
	}
	return track, nil
}
