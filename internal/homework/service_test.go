package homework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/store"
)

func setup(t *testing.T, reward int) (*Service, *store.MemoryRepo, *domain.User) {
	t.Helper()
	ctx := context.Background()
	repo := store.OpenMemory()

	set := domain.DefaultSettings()
	set.Lives.Enabled = true
	set.Lives.MaxLives = 5
	set.Lives.RewardEarlyHomework = reward
	if err := repo.SaveSettings(ctx, &set); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	st := &domain.User{ChatID: 200, FullName: "Student", Role: domain.RoleStudent}
	if err := repo.UpsertUser(ctx, st); err != nil {
		t.Fatalf("upsert student: %v", err)
	}
	if err := repo.SetLives(ctx, st.ID, 3); err != nil {
		t.Fatalf("set lives: %v", err)
	}
	st.Lives = 3

	return NewService(repo, lives.NewLedger(repo)), repo, st
}

func TestCompleteEarlyRewardsLife(t *testing.T) {
	ctx := context.Background()
	svc, _, st := setup(t, 1)

	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	hw, err := svc.Create(ctx, st.ID, 1, "Chapter 4 exercises", now.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.Complete(ctx, hw.ID, st.ID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Outcome != OutcomeEarly {
		t.Fatalf("want early outcome, got %q", res.Outcome)
	}
	if res.Rewarded != 1 || res.Balance != 4 {
		t.Fatalf("want +1 reward to balance 4, got reward %d balance %d", res.Rewarded, res.Balance)
	}
	if len(res.Notices) != 1 {
		t.Fatalf("want one ledger notice, got %d", len(res.Notices))
	}
	if !res.Homework.IsCompleted || res.Homework.CompletedAt == nil {
		t.Fatal("completion not recorded on the returned homework")
	}
}

func TestCompleteLateGivesNoReward(t *testing.T) {
	ctx := context.Background()
	svc, repo, st := setup(t, 1)

	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	hw, err := svc.Create(ctx, st.ID, 1, "Essay draft", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.Complete(ctx, hw.ID, st.ID, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Outcome != OutcomeLate {
		t.Fatalf("want late outcome, got %q", res.Outcome)
	}
	if res.Rewarded != 0 || res.Balance != 3 {
		t.Fatalf("late completion must not reward: reward %d balance %d", res.Rewarded, res.Balance)
	}

	// A completed homework is never late again, so the sweep skips it.
	stored, err := repo.GetHomework(ctx, hw.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.IsLate(now.Add(time.Hour)) {
		t.Fatal("completed homework reported late")
	}
}

func TestCompleteIsExclusive(t *testing.T) {
	ctx := context.Background()
	svc, _, st := setup(t, 1)

	now := time.Now().UTC()
	hw, err := svc.Create(ctx, st.ID, 1, "Vocabulary list", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Complete(ctx, hw.ID, st.ID, now); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := svc.Complete(ctx, hw.ID, st.ID, now); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second complete: want ErrAlreadyCompleted, got %v", err)
	}
}

func TestCompleteForeignHomework(t *testing.T) {
	ctx := context.Background()
	svc, repo, st := setup(t, 1)

	other := &domain.User{ChatID: 201, FullName: "Other", Role: domain.RoleStudent}
	if err := repo.UpsertUser(ctx, other); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	now := time.Now().UTC()
	hw, err := svc.Create(ctx, st.ID, 1, "Reading", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Complete(ctx, hw.ID, other.ID, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign student: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Complete(ctx, hw.ID+100, st.ID, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing homework: want ErrNotFound, got %v", err)
	}
}

func TestCompleteEarlyWithRewardDisabled(t *testing.T) {
	ctx := context.Background()
	svc, _, st := setup(t, 0)

	now := time.Now().UTC()
	hw, err := svc.Create(ctx, st.ID, 1, "Worksheet", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := svc.Complete(ctx, hw.ID, st.ID, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Outcome != OutcomeEarly || res.Rewarded != 0 || res.Balance != 3 {
		t.Fatalf("zero reward must leave the balance alone: %+v", res)
	}
}
