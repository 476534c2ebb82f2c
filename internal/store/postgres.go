package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tracklab/stravatag/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS seen_activities (
	activity_id BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	tagged_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS poll_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	checked     INTEGER NOT NULL DEFAULT 0,
	tagged      INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_seen_tagged_at ON seen_activities(tagged_at);
CREATE INDEX IF NOT EXISTS idx_poll_runs_started_at ON poll_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Seen(ctx context.Context, activityID int64) (bool, error) {
	var seen bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_activities WHERE activity_id = $1)`,
		activityID,
	).Scan(&seen)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: seen %d", activityID)
	}
	return seen, nil
}

func (s *PostgresStore) MarkSeen(ctx context.Context, activities []SeenActivity) error {
	if len(activities) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(activities))
	for _, a := range activities {
		taggedAt := a.TaggedAt
		if taggedAt.IsZero() {
			taggedAt = time.Now().UTC()
		}
		rows = append(rows, []any{a.ActivityID, a.Name, taggedAt})
	}

	_, err := db.BulkInsert(ctx, s.pool, db.InsertConfig{
		Table:        "seen_activities",
		Columns:      []string{"activity_id", "name", "tagged_at"},
		ConflictKeys: []string{"activity_id"},
	}, rows)
	return eris.Wrap(err, "postgres: mark seen")
}

func (s *PostgresStore) CountSeen(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seen_activities`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count seen")
}

// PruneSeen deletes all but the keep most recently tagged activities.
func (s *PostgresStore) PruneSeen(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		keep = SeenRetention
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM seen_activities WHERE activity_id NOT IN (
			SELECT activity_id FROM seen_activities
			ORDER BY tagged_at DESC, activity_id DESC LIMIT $1
		)`,
		keep,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune seen")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) StartPollRun(ctx context.Context) (*PollRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO poll_runs (id, started_at) VALUES ($1, $2)`,
		id, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert poll run")
	}
	return &PollRun{ID: id, StartedAt: now}, nil
}

func (s *PostgresStore) FinishPollRun(ctx context.Context, runID string, checked, tagged int, runErr error) error {
	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE poll_runs SET finished_at = $1, checked = $2, tagged = $3, error = $4 WHERE id = $5`,
		time.Now().UTC(), checked, tagged, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish poll run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("poll run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) RecentPollRuns(ctx context.Context, limit int) ([]PollRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, finished_at, checked, tagged, error FROM poll_runs
		 ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list poll runs")
	}
	defer rows.Close()

	var runs []PollRun
	for rows.Next() {
		var r PollRun
		var finishedAt sql.NullTime
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.StartedAt, &finishedAt, &r.Checked, &r.Tagged, &errMsg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan poll run")
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			r.FinishedAt = &t
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list poll runs iterate")
}
