package extraction

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrJobNotFound is returned for unknown or expired job IDs.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of an async extraction.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is an async extraction and its latest progress.
type Job struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId,omitempty"`
	Filename  string              `json:"filename,omitempty"`
	Status    JobStatus           `json:"status"`
	Progress  Progress            `json:"progress"`
	Result    *Result             `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorCode ExtractionErrorCode `json:"errorCode,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// JobStore manages in-memory async extraction jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewJobStore creates a new job store with background cleanup.
func NewJobStore(ttl time.Duration) *JobStore {
	js := &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
		now:  time.Now,
		done: make(chan struct{}),
	}
	go js.cleanup()
	return js
}

// NewJob creates a pending job.
func NewJob(id, userID, filename string, now time.Time) *Job {
	return &Job{
		ID:        id,
		UserID:    userID,
		Filename:  filename,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Create stores a new extraction job.
func (js *JobStore) Create(job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	js.mu.Lock()
	defer js.mu.Unlock()
	js.jobs[job.ID] = job
	return nil
}

// Get returns a snapshot of the job.
func (js *JobStore) Get(id string) (Job, error) {
	js.mu.RLock()
	defer js.mu.RUnlock()
	job, ok := js.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// Update applies fn to the stored job under the store lock.
func (js *JobStore) Update(id string, fn func(*Job)) error {
	js.mu.Lock()
	defer js.mu.Unlock()
	job, ok := js.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	fn(job)
	job.UpdatedAt = js.now()
	return nil
}

// Stop signals the background cleanup goroutine to exit. It is safe to call
// more than once.
func (js *JobStore) Stop() {
	js.once.Do(func() { close(js.done) })
}

func (js *JobStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-js.done:
			return
		case <-ticker.C:
			js.sweep()
		}
	}
}

// sweep drops jobs older than the TTL.
func (js *JobStore) sweep() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	now := js.now()
	removed := 0
	for id, job := range js.jobs {
		if now.Sub(job.CreatedAt) > js.ttl {
			delete(js.jobs, id)
			removed++
		}
	}
	return removed
}
