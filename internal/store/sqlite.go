package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS seen_activities (
	activity_id INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	tagged_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS poll_runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME,
	checked     INTEGER NOT NULL DEFAULT 0,
	tagged      INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_seen_tagged_at ON seen_activities(tagged_at);
CREATE INDEX IF NOT EXISTS idx_poll_runs_started_at ON poll_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Seen(ctx context.Context, activityID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_activities WHERE activity_id = ?`,
		activityID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: seen %d", activityID)
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkSeen(ctx context.Context, activities []SeenActivity) error {
	if len(activities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin mark seen")
	}
	defer tx.Rollback()

	for _, a := range activities {
		taggedAt := a.TaggedAt
		if taggedAt.IsZero() {
			taggedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO seen_activities (activity_id, name, tagged_at) VALUES (?, ?, ?)
			 ON CONFLICT (activity_id) DO NOTHING`,
			a.ActivityID, a.Name, taggedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: mark seen %d", a.ActivityID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit mark seen")
}

func (s *SQLiteStore) CountSeen(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_activities`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count seen")
}

// PruneSeen deletes all but the keep most recently tagged activities.
func (s *SQLiteStore) PruneSeen(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		keep = SeenRetention
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_activities WHERE activity_id NOT IN (
			SELECT activity_id FROM seen_activities
			ORDER BY tagged_at DESC, activity_id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune seen")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) StartPollRun(ctx context.Context) (*PollRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO poll_runs (id, started_at) VALUES (?, ?)`,
		id, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert poll run")
	}
	return &PollRun{ID: id, StartedAt: now}, nil
}

func (s *SQLiteStore) FinishPollRun(ctx context.Context, runID string, checked, tagged int, runErr error) error {
	var errMsg sql.NullString
	if runErr != nil {
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE poll_runs SET finished_at = ?, checked = ?, tagged = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), checked, tagged, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish poll run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("poll run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) RecentPollRuns(ctx context.Context, limit int) ([]PollRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, checked, tagged, error FROM poll_runs
		 ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list poll runs")
	}
	defer rows.Close()

	var runs []PollRun
	for rows.Next() {
		var r PollRun
		var finishedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finishedAt, &r.Checked, &r.Tagged, &errMsg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan poll run")
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			r.FinishedAt = &t
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list poll runs iterate")
}
