package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/notify"
	"github.com/senya-a11/HelperTutor/internal/store"
)

func newScheduler(t *testing.T, repo *store.MemoryRepo) *Scheduler {
	t.Helper()
	rec := newRecorder()
	dispatcher := notify.NewDispatcher(rec, zap.NewNop())
	ledger := lives.NewLedger(repo)
	sweeper := NewSweeper(repo, ledger, dispatcher, zap.NewNop(), time.UTC)
	return New(repo, NewJobStore(), NewPlanner(time.UTC), dispatcher, sweeper, zap.NewNop())
}

func TestRecomputeCancelsStaleReminders(t *testing.T) {
	ctx := context.Background()
	repo := store.OpenMemory()
	sched := newScheduler(t, repo)

	st := &domain.User{ChatID: 2, FullName: "Student", Role: domain.RoleStudent}
	if err := repo.UpsertUser(ctx, st); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	hw := &domain.Homework{StudentID: st.ID, TutorID: 1, TaskText: "Chapter 4", Deadline: now.Add(48 * time.Hour)}
	if err := repo.CreateHomework(ctx, hw); err != nil {
		t.Fatalf("create homework: %v", err)
	}

	if err := sched.Recompute(ctx, now); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	// Default offsets are 24h and 1h, both still ahead of a 48h deadline.
	if got := sched.PendingJobs(); got != 2 {
		t.Fatalf("want 2 reminder jobs, got %d: %v", got, sched.jobs.Snapshot())
	}

	// Completing the homework and recomputing cancels its reminders: the
	// job set is re-derived, never patched.
	if err := repo.MarkHomeworkCompleted(ctx, hw.ID, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := sched.Recompute(ctx, now); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := sched.PendingJobs(); got != 0 {
		t.Fatalf("completed homework must lose its reminders, got %d jobs", got)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := store.OpenMemory()
	sched := newScheduler(t, repo)

	st := &domain.User{ChatID: 2, FullName: "Student", Role: domain.RoleStudent}
	if err := repo.UpsertUser(ctx, st); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	l := &domain.Lesson{StudentID: st.ID, TutorID: 1, ScheduledAt: now.Add(48 * time.Hour), NotifyStudent: true, Topic: "Algebra"}
	if err := repo.CreateLesson(ctx, l); err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := sched.Recompute(ctx, now); err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
	}
	if got := sched.PendingJobs(); got != 2 {
		t.Fatalf("repeated recompute must not duplicate jobs, got %d", got)
	}

	first := sched.jobs.Snapshot()
	if err := sched.Recompute(ctx, now); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	second := sched.jobs.Snapshot()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("job %d changed across identical recomputes: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestTickReschedulesSweeps(t *testing.T) {
	ctx := context.Background()
	repo := store.OpenMemory()
	sched := newScheduler(t, repo)

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	sched.jobs.Put(Job{ID: LateSweepJobID, Kind: KindLateSweep, FireAt: now})
	sched.jobs.Put(Job{ID: LivesSweepJobID, Kind: KindLivesSweep, FireAt: now})

	sched.tick(ctx, now)

	late, ok := sched.jobs.Get(LateSweepJobID)
	if !ok || !late.FireAt.Equal(now.Add(lateSweepInterval)) {
		t.Fatalf("late sweep must re-register %v ahead, got %v", lateSweepInterval, late)
	}
	livesJob, ok := sched.jobs.Get(LivesSweepJobID)
	if !ok || !livesJob.FireAt.Equal(now.Add(livesSweepInterval)) {
		t.Fatalf("lives sweep must re-register %v ahead, got %v", livesSweepInterval, livesJob)
	}
}
