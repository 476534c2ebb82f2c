package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_SeenRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seen, err := s.Seen(ctx, 42)
	require.NoError(t, err)
	assert.False(t, seen)

	err = s.MarkSeen(ctx, []SeenActivity{{ActivityID: 42, Name: "Morning Run"}})
	require.NoError(t, err)

	seen, err = s.Seen(ctx, 42)
	require.NoError(t, err)
	assert.True(t, seen)

	n, err := s.CountSeen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_MarkSeen_Idempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	batch := []SeenActivity{
		{ActivityID: 1, Name: "Run"},
		{ActivityID: 2, Name: "Ride"},
	}
	require.NoError(t, s.MarkSeen(ctx, batch))
	require.NoError(t, s.MarkSeen(ctx, batch))

	n, err := s.CountSeen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStore_PruneSeen(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var batch []SeenActivity
	for i := range 10 {
		batch = append(batch, SeenActivity{
			ActivityID: int64(i + 1),
			Name:       fmt.Sprintf("Activity %d", i+1),
			TaggedAt:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	require.NoError(t, s.MarkSeen(ctx, batch))

	pruned, err := s.PruneSeen(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, pruned)

	n, err := s.CountSeen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The most recent three survive.
	for _, id := range []int64{8, 9, 10} {
		seen, err := s.Seen(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen, "activity %d", id)
	}
	seen, err := s.Seen(ctx, 1)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSQLiteStore_PollRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.StartPollRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	require.NoError(t, s.FinishPollRun(ctx, run.ID, 5, 2, nil))

	runs, err := s.RecentPollRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 5, runs[0].Checked)
	assert.Equal(t, 2, runs[0].Tagged)
	assert.Empty(t, runs[0].Error)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestSQLiteStore_FinishPollRun_RecordsError(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.StartPollRun(ctx)
	require.NoError(t, err)

	require.NoError(t, s.FinishPollRun(ctx, run.ID, 3, 0, fmt.Errorf("strava unavailable")))

	runs, err := s.RecentPollRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "strava unavailable", runs[0].Error)
}

func TestSQLiteStore_FinishPollRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.FinishPollRun(context.Background(), "no-such-run", 0, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_RecentPollRuns_Ordering(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		run, err := s.StartPollRun(ctx)
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := s.RecentPollRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}
