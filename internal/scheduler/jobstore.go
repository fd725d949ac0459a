package scheduler

import (
	"sort"
	"sync"
	"time"
)

// JobStore is the in-memory registry of pending jobs, keyed by deterministic
// ID. It is the only state shared with the timer loop; every method is a
// single critical section, so callers observe either the old or the new full
// job set, never a partial mix.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]Job)}
}

// Put registers a job, replacing any previous job with the same ID.
func (s *JobStore) Put(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

func (s *JobStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Snapshot returns all pending jobs ordered by fire time, then ID.
func (s *JobStore) Snapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sortJobs(out)
	return out
}

// Due removes and returns every job whose fire time has arrived. A returned
// job is consumed regardless of delivery outcome.
func (s *JobStore) Due(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Job
	for id, j := range s.jobs {
		if !j.FireAt.After(now) {
			out = append(out, j)
			delete(s.jobs, id)
		}
	}
	sortJobs(out)
	return out
}

// ReplaceDerived discards every entity-derived job and installs the given
// set in one critical section. Singleton sweep jobs are untouched. This is
// the "cancel all, then re-add" strategy: full recompute on every mutation
// instead of incremental diffing.
func (s *JobStore) ReplaceDerived(jobs []Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if j.Derived() {
			delete(s.jobs, id)
		}
	}
	for _, j := range jobs {
		if j.Derived() {
			s.jobs[j.ID] = j
		}
	}
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].FireAt.Equal(jobs[j].FireAt) {
			return jobs[i].FireAt.Before(jobs[j].FireAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}
