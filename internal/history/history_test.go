package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memoranda/internal/searcher"
)

func newRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func record(query, method string) searcher.QueryRecord {
	return searcher.QueryRecord{
		Query:       query,
		Method:      method,
		ResultCount: 3,
		TopID:       "architecture",
		Duration:    42 * time.Millisecond,
		At:          time.Now(),
	}
}

func TestRecorder_RecordAndRecent(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	r.Record(ctx, record("first query", "hybrid"))
	r.Record(ctx, record("second query", "cached"))

	recent, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "second query", recent[0].Query)
	assert.Equal(t, "cached", recent[0].Method)
	assert.Equal(t, "first query", recent[1].Query)
	assert.Equal(t, 3, recent[1].ResultCount)
	assert.Equal(t, "architecture", recent[1].TopID)
	assert.Equal(t, 42*time.Millisecond, recent[1].Duration)
	assert.False(t, recent[1].At.IsZero())
}

func TestRecorder_RecentLimit(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		r.Record(ctx, record("q", "hybrid"))
	}

	recent, err := r.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestRecorder_Top(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r.Record(ctx, record("common query", "hybrid"))
	}
	r.Record(ctx, record("rare query", "hybrid"))

	top, err := r.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "common query", top[0].Query)
	assert.Equal(t, 3, top[0].Count)
	assert.Equal(t, "rare query", top[1].Query)

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRecorder_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	first.Record(ctx, record("durable query", "hybrid"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	recent, err := second.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "durable query", recent[0].Query)
}

func TestRecorder_EmptyDatabase(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	recent, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	top, err := r.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}
