// Package scheduler keeps a one-to-one correspondence between "things that
// should eventually notify someone" and registered jobs. The job set is
// fully re-derived from entity state after every mutation (cancel all, then
// re-add): mutation rate is human-driven, so an O(n) recompute is cheap and
// removes the whole class of stale-job drift bugs.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/notify"
	"github.com/senya-a11/HelperTutor/internal/store"
)

const (
	pollInterval       = 30 * time.Second
	lateSweepInterval  = 6 * time.Hour
	livesSweepInterval = 24 * time.Hour
)

// Scheduler owns the single timer loop. Due reminder jobs are dispatched
// each in its own goroutine so a slow send never blocks the timeline; due
// sweep jobs run inline and re-register themselves under their stable IDs.
type Scheduler struct {
	repo       store.Repo
	jobs       *JobStore
	planner    *Planner
	dispatcher *notify.Dispatcher
	sweeper    *Sweeper
	log        *zap.Logger
	interval   time.Duration
}

func New(repo store.Repo, jobs *JobStore, planner *Planner, dispatcher *notify.Dispatcher, sweeper *Sweeper, log *zap.Logger) *Scheduler {
	return &Scheduler{
		repo:       repo,
		jobs:       jobs,
		planner:    planner,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		log:        log,
		interval:   pollInterval,
	}
}

// Recompute rebuilds the derived job set from current repository state.
// Called once at startup and after every mutation; the swap is atomic with
// respect to the timer loop.
func (s *Scheduler) Recompute(ctx context.Context, now time.Time) error {
	now = now.UTC()
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	homeworks, err := s.repo.ListActiveHomeworks(ctx, now)
	if err != nil {
		return err
	}
	lessons, err := s.repo.ListUpcomingLessons(ctx, now)
	if err != nil {
		return err
	}
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return err
	}

	planned := s.planner.Plan(homeworks, lessons, students, settings, now)
	s.jobs.ReplaceDerived(planned)
	s.log.Debug("recomputed reminder jobs",
		zap.Int("jobs", len(planned)),
		zap.Int("homeworks", len(homeworks)),
		zap.Int("lessons", len(lessons)),
	)
	return nil
}

// Run registers the singleton sweeps and ticks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	now := time.Now().UTC()
	s.jobs.Put(Job{ID: LateSweepJobID, Kind: KindLateSweep, FireAt: now.Add(lateSweepInterval)})
	s.jobs.Put(Job{ID: LivesSweepJobID, Kind: KindLivesSweep, FireAt: now.Add(livesSweepInterval)})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx, time.Now().UTC())
		}
	}
}

// tick consumes due jobs. Fired jobs are gone from the store regardless of
// delivery outcome; delivery errors die inside the dispatcher.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, job := range s.jobs.Due(now) {
		switch job.Kind {
		case KindLateSweep:
			s.sweeper.SweepLate(ctx, now)
			s.jobs.Put(Job{ID: LateSweepJobID, Kind: KindLateSweep, FireAt: now.Add(lateSweepInterval)})
		case KindLivesSweep:
			s.sweeper.SweepLives(ctx, now)
			s.jobs.Put(Job{ID: LivesSweepJobID, Kind: KindLivesSweep, FireAt: now.Add(livesSweepInterval)})
		default:
			j := job
			go s.dispatcher.Send(j.ChatID, j.Text)
		}
	}
}

// PendingJobs reports the current job count for the stats endpoint.
func (s *Scheduler) PendingJobs() int {
	return s.jobs.Len()
}
