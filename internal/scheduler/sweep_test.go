package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/notify"
	"github.com/senya-a11/HelperTutor/internal/store"
)

// recorder captures everything the dispatcher sends, per chat.
type recorder struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func newRecorder() *recorder { return &recorder{sent: make(map[int64][]string)} }

func (r *recorder) Send(chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[chatID] = append(r.sent[chatID], text)
	return nil
}

func (r *recorder) count(chatID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent[chatID])
}

func (r *recorder) texts(chatID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[chatID]...)
}

type sweepFixture struct {
	repo    *store.MemoryRepo
	ledger  *lives.Ledger
	rec     *recorder
	sweeper *Sweeper
	tutor   *domain.User
	student *domain.User
}

func newSweepFixture(t *testing.T, set domain.Settings) *sweepFixture {
	t.Helper()
	ctx := context.Background()
	repo := store.OpenMemory()

	if err := repo.SaveSettings(ctx, &set); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	tutor := &domain.User{ChatID: 1, FullName: "Tutor", Role: domain.RoleTutor}
	if err := repo.UpsertUser(ctx, tutor); err != nil {
		t.Fatalf("upsert tutor: %v", err)
	}
	student := &domain.User{ChatID: 2, FullName: "Student", Role: domain.RoleStudent}
	if err := repo.UpsertUser(ctx, student); err != nil {
		t.Fatalf("upsert student: %v", err)
	}
	if err := repo.SetLives(ctx, student.ID, set.Lives.MaxLives); err != nil {
		t.Fatalf("set lives: %v", err)
	}
	student.Lives = set.Lives.MaxLives

	rec := newRecorder()
	ledger := lives.NewLedger(repo)
	return &sweepFixture{
		repo:    repo,
		ledger:  ledger,
		rec:     rec,
		sweeper: NewSweeper(repo, ledger, notify.NewDispatcher(rec, zap.NewNop()), zap.NewNop(), time.UTC),
		tutor:   tutor,
		student: student,
	}
}

func sweepSettings() domain.Settings {
	set := domain.DefaultSettings()
	set.LateAlertsEnabled = true
	set.Lives.Enabled = true
	set.Lives.MaxLives = 5
	set.Lives.PenaltyLateHomework = 1
	set.Lives.ShowToStudent = true
	return set
}

func TestSweepLateNotifiesAtMostOnce(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t, sweepSettings())

	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	hw := &domain.Homework{
		StudentID: f.student.ID,
		TutorID:   f.tutor.ID,
		TaskText:  "Chapter 4 exercises",
		Deadline:  now.Add(-time.Hour),
	}
	if err := f.repo.CreateHomework(ctx, hw); err != nil {
		t.Fatalf("create homework: %v", err)
	}

	// The sweep runs every few hours for as long as the process lives; the
	// homework must trigger the alert and the penalty exactly once.
	f.sweeper.SweepLate(ctx, now)
	f.sweeper.SweepLate(ctx, now.Add(6*time.Hour))
	f.sweeper.SweepLate(ctx, now.Add(12*time.Hour))

	// Tutor: one deadline alert + one balance line.
	if got := f.rec.count(f.tutor.ChatID); got != 2 {
		t.Fatalf("tutor: want 2 messages, got %d: %v", got, f.rec.texts(f.tutor.ChatID))
	}
	// Student: exactly one penalty notice.
	if got := f.rec.count(f.student.ChatID); got != 1 {
		t.Fatalf("student: want 1 notice, got %d: %v", got, f.rec.texts(f.student.ChatID))
	}

	stored, err := f.repo.GetUser(ctx, f.student.ID)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if stored.Lives != 4 {
		t.Fatalf("penalty applied more than once: lives %d", stored.Lives)
	}

	late, err := f.repo.ListLateHomeworks(ctx, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list late: %v", err)
	}
	if len(late) != 0 {
		t.Fatalf("notified homework must leave the late set, got %v", late)
	}
}

func TestSweepLateAlertsDisabled(t *testing.T) {
	ctx := context.Background()
	set := sweepSettings()
	set.LateAlertsEnabled = false
	f := newSweepFixture(t, set)

	now := time.Now().UTC()
	hw := &domain.Homework{StudentID: f.student.ID, TutorID: f.tutor.ID, TaskText: "Essay", Deadline: now.Add(-time.Hour)}
	if err := f.repo.CreateHomework(ctx, hw); err != nil {
		t.Fatalf("create homework: %v", err)
	}

	f.sweeper.SweepLate(ctx, now)

	if got := f.rec.count(f.tutor.ChatID); got != 0 {
		t.Fatalf("alerts off: tutor must get nothing, got %v", f.rec.texts(f.tutor.ChatID))
	}
	// The penalty is a lives-policy concern, not an alert concern.
	stored, _ := f.repo.GetUser(ctx, f.student.ID)
	if stored.Lives != 4 {
		t.Fatalf("penalty must still apply with alerts off: lives %d", stored.Lives)
	}
}

func TestSweepLateCompletedHomeworkUntouched(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t, sweepSettings())

	now := time.Now().UTC()
	hw := &domain.Homework{StudentID: f.student.ID, TutorID: f.tutor.ID, TaskText: "Done on time", Deadline: now.Add(-time.Hour)}
	if err := f.repo.CreateHomework(ctx, hw); err != nil {
		t.Fatalf("create homework: %v", err)
	}
	if err := f.repo.MarkHomeworkCompleted(ctx, hw.ID, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	f.sweeper.SweepLate(ctx, now)

	if got := f.rec.count(f.tutor.ChatID) + f.rec.count(f.student.ChatID); got != 0 {
		t.Fatalf("completed homework must never alert, got %d messages", got)
	}
	stored, _ := f.repo.GetUser(ctx, f.student.ID)
	if stored.Lives != 5 {
		t.Fatalf("completed homework must never penalize: lives %d", stored.Lives)
	}
}

func TestSweepLivesRestoresAndAnnounces(t *testing.T) {
	ctx := context.Background()
	set := sweepSettings()
	f := newSweepFixture(t, set)

	base := time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)
	if err := f.repo.SetLivesReset(ctx, f.student.ID, 1, base.Add(-set.Lives.AutoResetInterval)); err != nil {
		t.Fatalf("seed reset time: %v", err)
	}

	f.sweeper.SweepLives(ctx, base)
	f.sweeper.SweepLives(ctx, base.Add(time.Hour)) // not eligible again yet

	stored, err := f.repo.GetUser(ctx, f.student.ID)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if stored.Lives != set.Lives.MaxLives {
		t.Fatalf("want lives restored to %d, got %d", set.Lives.MaxLives, stored.Lives)
	}
	texts := f.rec.texts(f.student.ChatID)
	if len(texts) != 1 || !strings.Contains(texts[0], "restored") {
		t.Fatalf("want a single restore notice, got %v", texts)
	}
}
