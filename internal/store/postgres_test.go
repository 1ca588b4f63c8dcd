package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to TEST_DATABASE_URL and applies migrations.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL environment variable is not set")
	}
	ctx := context.Background()
	db, err := ConnectPostgres(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db.DB))
	_, err = db.ExecContext(ctx, `TRUNCATE timetables;`)
	require.NoError(t, err)
	return NewPostgresStore(db)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	tt := newTimetable("pg-1", "Al-Noor", baseTime)
	tt.Times[0].FajrIqama = "05:40"
	require.NoError(t, s.SaveTimetable(ctx, tt))

	got, err := s.GetTimetable(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, tt.Times, got.Times)
	assert.True(t, tt.CreatedAt.Equal(got.CreatedAt))

	tt.Times[0].Isha = "20:00"
	require.NoError(t, s.SaveTimetable(ctx, tt))
	got, err = s.GetTimetable(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, "20:00", got.Times[0].Isha)

	require.NoError(t, s.DeleteTimetable(ctx, "pg-1"))
	_, err = s.GetTimetable(ctx, "pg-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteTimetable(ctx, "pg-1"), ErrNotFound)
}

func TestPostgresStore_ListAndLatest(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTimetable(ctx, newTimetable("a", "Al-Noor", baseTime)))
	require.NoError(t, s.SaveTimetable(ctx, newTimetable("b", "Al-Noor", baseTime.Add(time.Hour))))
	require.NoError(t, s.SaveTimetable(ctx, newTimetable("c", "Central", baseTime)))

	page, token, err := s.ListTimetables(ctx, "Al-Noor", 1, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	page, token, err = s.ListTimetables(ctx, "Al-Noor", 1, token)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
	assert.Empty(t, token)

	latest, err := s.GetLatestTimetable(ctx, "Al-Noor")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
	assert.Equal(t, "al-noor", latest.MosqueKey)

	latest, err = s.GetLatestTimetable(ctx, "al-noor")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)

	_, err = s.GetLatestTimetable(ctx, "Nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}
