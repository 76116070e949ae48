// Package jobstore keeps the process-wide registry of podcast jobs.
//
// Jobs live only in memory. Expired entries are swept when a new job is
// created, so a job outlives its retention window until the next Create.
package jobstore

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nikhilbhutani/podcastai/internal/models"
)

const DefaultRetention = 30 * time.Minute

type Option func(*Store)

// WithClock overrides the time source used for creation stamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*models.Job
	subs      map[string]map[chan models.Job]struct{}
	retention time.Duration
	now       func() time.Time
}

func New(retention time.Duration, opts ...Option) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		jobs:      make(map[string]*models.Job),
		subs:      make(map[string]map[chan models.Job]struct{}),
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create sweeps expired jobs and then registers a new processing job.
func (s *Store) Create(id, topic string) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	job := &models.Job{
		ID:        id,
		Status:    models.JobStatusProcessing,
		Progress:  0,
		Stage:     "Starting...",
		Topic:     topic,
		CreatedAt: s.now(),
	}
	s.jobs[id] = job
	snap := snapshot(job)
	s.publishLocked(snap)
	return snap
}

// Update merges the non-nil fields of u into the job. Unknown ids are ignored,
// which covers updates racing a sweep. Jobs already in a terminal state are
// never modified again.
func (s *Store) Update(id string, u models.JobUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		slog.Debug("update for unknown job dropped", "job_id", id)
		return
	}
	if job.Status.Terminal() {
		slog.Warn("update for finished job dropped", "job_id", id, "status", job.Status)
		return
	}

	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		job.Progress = *u.Progress
	}
	if u.Stage != nil {
		job.Stage = *u.Stage
	}
	if u.Audio != nil {
		job.Audio = u.Audio
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	if u.FailedURLs != nil {
		job.FailedURLs = slices.Clone(u.FailedURLs)
	}

	s.publishLocked(snapshot(job))
}

// Get returns a copy of the job. The boolean is false when the id is unknown
// or the job has been swept.
func (s *Store) Get(id string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return snapshot(job), true
}

// Len returns the number of jobs held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) sweepLocked() {
	now := s.now()
	for id, job := range s.jobs {
		if now.Sub(job.CreatedAt) > s.retention {
			delete(s.jobs, id)
			s.closeSubsLocked(id)
			slog.Debug("expired job removed", "job_id", id, "status", job.Status)
		}
	}
}

func snapshot(job *models.Job) models.Job {
	cp := *job
	cp.FailedURLs = slices.Clone(job.FailedURLs)
	return cp
}
