// Package store persists which activities have already been tagged and a
// short history of poll runs.
package store

import (
	"context"
	"time"
)

// SeenRetention is how many seen activities to keep. Older rows are pruned
// so the store stays small for an account that uploads for years.
const SeenRetention = 1000

// SeenActivity records an activity the tagger has already processed.
type SeenActivity struct {
	ActivityID int64     `json:"activity_id"`
	Name       string    `json:"name"`
	TaggedAt   time.Time `json:"tagged_at"`
}

// PollRun records one pass over the athlete's recent activities.
type PollRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Checked    int        `json:"checked"`
	Tagged     int        `json:"tagged"`
	Error      string     `json:"error,omitempty"`
}

// Store defines the persistence interface for the tagging loop.
type Store interface {
	// Seen activities
	Seen(ctx context.Context, activityID int64) (bool, error)
	MarkSeen(ctx context.Context, activities []SeenActivity) error
	CountSeen(ctx context.Context) (int, error)
	PruneSeen(ctx context.Context, keep int) (int, error)

	// Poll runs
	StartPollRun(ctx context.Context) (*PollRun, error)
	FinishPollRun(ctx context.Context, runID string, checked, tagged int, runErr error) error
	RecentPollRuns(ctx context.Context, limit int) ([]PollRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
