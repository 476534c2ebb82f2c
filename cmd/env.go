package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tracklab/stravatag/internal/generate"
	"github.com/tracklab/stravatag/internal/geo"
	"github.com/tracklab/stravatag/internal/markers"
	"github.com/tracklab/stravatag/internal/store"
	"github.com/tracklab/stravatag/internal/tagger"
	"github.com/tracklab/stravatag/pkg/strava"
)

// env bundles the wired-up components shared by run and watch.
type env struct {
	store  store.Store
	tagger *tagger.Tagger
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		zap.L().Warn("closing store failed", zap.Error(err))
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	oauth := strava.NewOAuth(cfg.Strava.ClientID, cfg.Strava.ClientSecret)
	tokens, err := strava.NewTokenManager(oauth, cfg.Strava.CredentialsFile)
	if err != nil {
		st.Close()
		if errors.Is(err, strava.ErrNoToken) {
			return nil, eris.New("no stored credentials, run `stravatag auth` first")
		}
		return nil, err
	}
	client := strava.NewClient(tokens)

	m, err := markers.Load(cfg.MarkersFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	eval, err := geo.Select(geo.Mode(cfg.Geo.Evaluator))
	if err != nil {
		st.Close()
		return nil, err
	}
	zap.L().Debug("selected route evaluator", zap.String("implementation", eval.Name()))

	engine := generate.New(eval, generate.WithHRZones(cfg.HRZones))

	return &env{
		store: st,
		tagger: tagger.New(client, st, m, engine,
			tagger.WithRecentCount(cfg.Strava.RecentCount),
		),
	}, nil
}
