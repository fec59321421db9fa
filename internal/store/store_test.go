package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/dust-sensor/internal/air"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "air.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLatest_Empty(t *testing.T) {
	s := openTemp(t)
	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoReadings)
}

func TestInsertAndLatest(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	run := uuid.NewString()
	t0 := time.UnixMilli(1700000000123)

	m := air.Measurement{
		LowOccupancy: 231 * time.Millisecond,
		Pulses:       12,
		OutOfBounds:  1,
		Ratio:        0.77,
		Pcs:          401.2,
		Ugm3:         0.63,
		AQI:          3,
	}
	_, err := s.Insert(ctx, NewRecord(run, t0, m))
	require.NoError(t, err)

	m.AQI = 9
	id, err := s.Insert(ctx, NewRecord(run, t0.Add(30*time.Second), m))
	require.NoError(t, err)

	got, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, run, got.RunID)
	assert.Equal(t, 9, got.AQI)
	assert.True(t, got.At.Equal(t0.Add(30*time.Second)))
	assert.Equal(t, 231*time.Millisecond, got.LowOccupancy)
	assert.Equal(t, 12, got.Pulses)
	assert.Equal(t, 1, got.OutOfBounds)
	assert.InDelta(t, 0.77, got.Ratio, 1e-12)
}

func TestSince_OldestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000000000)

	for i, age := range []time.Duration{48 * time.Hour, 2 * time.Hour, time.Hour} {
		_, err := s.Insert(ctx, NewRecord("run", now.Add(-age), air.Measurement{AQI: i}))
		require.NoError(t, err)
	}

	got, err := s.Since(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].AQI)
	assert.Equal(t, 2, got[1].AQI)
}

func TestOpen_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "air.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Insert(context.Background(), NewRecord("a", time.Now(), air.Measurement{AQI: 7}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got.AQI)
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000000000)

	for _, age := range []time.Duration{72 * time.Hour, 49 * time.Hour, time.Hour} {
		_, err := s.Insert(ctx, NewRecord("run", now.Add(-age), air.Measurement{}))
		require.NoError(t, err)
	}

	n, err := s.Prune(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.Since(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestRetention_RunOncePrunesOlderThanKeep(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000000000)

	_, err := s.Insert(ctx, NewRecord("run", now.Add(-10*24*time.Hour), air.Measurement{AQI: 1}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, NewRecord("run", now.Add(-2*24*time.Hour), air.Measurement{AQI: 2}))
	require.NoError(t, err)

	r, err := NewRetention(s, 7*24*time.Hour, "@daily", nil)
	require.NoError(t, err)
	r.now = func() time.Time { return now }
	r.runOnce(ctx)

	left, err := s.Since(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, 2, left[0].AQI)
}

func TestNewRetention_Validation(t *testing.T) {
	s := openTemp(t)
	_, err := NewRetention(s, 0, "@daily", nil)
	assert.Error(t, err)
	_, err = NewRetention(s, time.Hour, "sometimes", nil)
	assert.Error(t, err)

	r, err := NewRetention(s, time.Hour, "0 3 * * *", nil)
	require.NoError(t, err)
	r.Start()
	r.Stop()
}
