package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStore_CreateGetUpdate(t *testing.T) {
	js := NewJobStore(time.Hour)
	defer js.Stop()

	require.NoError(t, js.Create(NewJob("job-1", "user-1", "march.png", time.Now())))

	job, err := js.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status)
	assert.Equal(t, "march.png", job.Filename)

	require.NoError(t, js.Update("job-1", func(j *Job) {
		j.Status = JobRunning
		j.Progress = Progress{Status: "Parsing prayer times...", Progress: 0.8}
	}))

	job, err = js.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.Status)
	assert.Equal(t, 0.8, job.Progress.Progress)
}

func TestJobStore_GetReturnsSnapshot(t *testing.T) {
	js := NewJobStore(time.Hour)
	defer js.Stop()

	require.NoError(t, js.Create(NewJob("job-1", "", "", time.Now())))
	job, err := js.Get("job-1")
	require.NoError(t, err)
	job.Status = JobFailed

	stored, err := js.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobPending, stored.Status)
}

func TestJobStore_Errors(t *testing.T) {
	js := NewJobStore(time.Hour)
	defer js.Stop()

	assert.Error(t, js.Create(&Job{}))

	_, err := js.Get("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	err = js.Update("missing", func(*Job) {})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStore_Sweep(t *testing.T) {
	js := NewJobStore(time.Hour)
	defer js.Stop()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	js.now = func() time.Time { return now }

	require.NoError(t, js.Create(NewJob("old", "", "", now.Add(-2*time.Hour))))
	require.NoError(t, js.Create(NewJob("fresh", "", "", now.Add(-10*time.Minute))))

	assert.Equal(t, 1, js.sweep())

	_, err := js.Get("old")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = js.Get("fresh")
	assert.NoError(t, err)
}

func TestJobStore_StopTwice(t *testing.T) {
	js := NewJobStore(time.Hour)
	js.Stop()
	assert.NotPanics(t, js.Stop)
}
