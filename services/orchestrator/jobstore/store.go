// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jobstore provides the concurrency-safe registry of benchmark jobs.
//
// # Description
//
// The store is the single piece of shared mutable state in the
// orchestrator. HTTP handlers read from it while background job goroutines
// write their one terminal update into it; every access goes through one
// coarse store-wide mutex. That lock is deliberately not per-job: expected
// job volumes are small and one lock keeps the visibility contract easy to
// audit. Under heavy concurrent polling it would become a contention
// point before anything else does.
//
// # Visibility Contract
//
// A job is inserted fully formed (status running, no results) and mutated
// exactly once by its background task, under the lock, into a terminal
// state. Readers receive deep copies, so a job observed as done always has
// its complete results and summary, and no caller can mutate stored state.
package jobstore

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
)

// =============================================================================
// Errors
// =============================================================================

// ErrNotFound is returned for unknown job ids. Handlers map it to 404.
var ErrNotFound = fmt.Errorf("job not found")

// =============================================================================
// Store
// =============================================================================

// DefaultMaxRetainedJobs bounds the in-memory store by default. The source
// system kept every job for the server's lifetime; retention is bounded
// here so long-running deployments cannot grow without limit.
const DefaultMaxRetainedJobs = 512

// Store is the in-memory job registry.
//
// # Fields
//
//   - mu: Store-wide mutex guarding every field below.
//   - seq: Monotonic id counter; ids are "b-<seq>" starting at b-1.
//   - jobs: Job records by id.
//   - order: Ids in creation order, for eviction.
//   - maxRetained: Retention bound; 0 disables eviction.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	seq         int64
	jobs        map[string]*datatypes.Job
	order       []string
	maxRetained int
}

// NewStore creates a job store retaining at most maxRetained jobs.
// Pass 0 to disable eviction, matching the unbounded source behavior.
func NewStore(maxRetained int) *Store {
	return &Store{
		jobs:        make(map[string]*datatypes.Job),
		maxRetained: maxRetained,
	}
}

// CreateJob allocates the next job id and inserts a running record.
//
// Id allocation and insertion happen under one lock acquisition, so ids
// are unique and gapless even under concurrent creation.
func (s *Store) CreateJob(params datatypes.BenchRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := "b-" + strconv.FormatInt(s.seq, 10)
	s.jobs[id] = &datatypes.Job{
		ID:        id,
		Status:    datatypes.JobStatusRunning,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Params:    params,
	}
	s.order = append(s.order, id)
	s.evictLocked()
	return id
}

// UpdateJob applies mutate to the stored record under the store lock.
//
// The full read-modify-write holds the lock, so concurrent GetJob readers
// observe either the old record or the new one, never a partial write.
func (s *Store) UpdateJob(id string, mutate func(*datatypes.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	mutate(job)
	return nil
}

// Complete writes a job's single terminal success update.
func (s *Store) Complete(id string, results []datatypes.ResultRecord, summary *datatypes.BenchSummary) error {
	return s.UpdateJob(id, func(job *datatypes.Job) {
		job.Status = datatypes.JobStatusDone
		job.Results = results
		job.Summary = summary
	})
}

// Fail writes a job's single terminal failure update.
func (s *Store) Fail(id string, message string) error {
	return s.UpdateJob(id, func(job *datatypes.Job) {
		job.Status = datatypes.JobStatusError
		job.Error = message
	})
}

// GetJob returns a deep copy of the job, or ErrNotFound.
func (s *Store) GetJob(id string) (datatypes.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return datatypes.Job{}, ErrNotFound
	}
	return job.Clone(), nil
}

// ListJobs returns the lightweight {status, created} projection of every
// retained job, keyed by id.
func (s *Store) ListJobs() map[string]datatypes.JobListing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]datatypes.JobListing, len(s.jobs))
	for id, job := range s.jobs {
		out[id] = datatypes.JobListing{Status: job.Status, Created: job.CreatedAt}
	}
	return out
}

// Len returns the number of retained jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// evictLocked drops the oldest terminal jobs once the retention bound is
// exceeded. Running jobs are never evicted: their background task still
// holds the id and will write a terminal update.
func (s *Store) evictLocked() {
	if s.maxRetained <= 0 {
		return
	}
	for len(s.jobs) > s.maxRetained {
		evicted := false
		for i, id := range s.order {
			job, ok := s.jobs[id]
			if !ok {
				s.order = append(s.order[:i], s.order[i+1:]...)
				evicted = true
				break
			}
			if job.Status.Terminal() {
				delete(s.jobs, id)
				s.order = append(s.order[:i], s.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			// Every retained job is still running; nothing safe to drop.
			return
		}
	}
}
