package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/notify"
	"github.com/senya-a11/HelperTutor/internal/store"
)

// Sweeper runs the periodic background scans: late-homework detection and
// the lives auto-reset. Both are independent of any user action and feed
// the same dispatcher path as reminders.
type Sweeper struct {
	repo       store.Repo
	ledger     *lives.Ledger
	dispatcher *notify.Dispatcher
	log        *zap.Logger
	defaultLoc *time.Location
}

func NewSweeper(repo store.Repo, ledger *lives.Ledger, dispatcher *notify.Dispatcher, log *zap.Logger, defaultLoc *time.Location) *Sweeper {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Sweeper{repo: repo, ledger: ledger, dispatcher: dispatcher, log: log, defaultLoc: defaultLoc}
}

// SweepLate handles every open homework past deadline that has not been
// late-notified yet. The flag is set first, so each homework triggers the
// tutor alert and the penalty exactly once no matter how often the sweep
// runs. Per-homework failures are logged and skipped; the sweep never stops
// the timeline.
func (s *Sweeper) SweepLate(ctx context.Context, now time.Time) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		s.log.Error("late sweep: load settings failed", zap.Error(err))
		return
	}
	late, err := s.repo.ListLateHomeworks(ctx, now)
	if err != nil {
		s.log.Error("late sweep: list failed", zap.Error(err))
		return
	}
	if len(late) == 0 {
		return
	}

	tutor, err := s.repo.GetTutor(ctx)
	if err != nil {
		s.log.Error("late sweep: no tutor registered", zap.Error(err))
		return
	}

	for i := range late {
		hw := &late[i]
		// Guard first: once the flag is up, this homework is done forever.
		if err := s.repo.MarkHomeworkLateNotified(ctx, hw.ID); err != nil {
			s.log.Error("late sweep: mark failed", zap.Error(err), zap.Int64("homeworkID", hw.ID))
			continue
		}

		student, err := s.repo.GetUser(ctx, hw.StudentID)
		if err != nil {
			s.log.Warn("late sweep: student missing", zap.Error(err), zap.Int64("homeworkID", hw.ID))
			continue
		}

		if settings.LateAlertsEnabled {
			s.dispatcher.Send(tutor.ChatID, fmt.Sprintf(
				"⚠️ %s missed the deadline (%s):\n%s",
				student.DisplayName(),
				domain.FormatDateTime(hw.Deadline, tutor.TZ, s.defaultLoc),
				hw.TaskText))
		}

		if settings.Lives.Enabled && settings.Lives.PenaltyLateHomework > 0 {
			balance, notices, err := s.ledger.Adjust(ctx, student, -settings.Lives.PenaltyLateHomework, "late homework", settings.Lives)
			if err != nil {
				s.log.Error("late sweep: penalty failed", zap.Error(err), zap.Int64("studentID", student.ID))
				continue
			}
			s.dispatcher.Notify(notices)
			if settings.LateAlertsEnabled {
				s.dispatcher.Send(tutor.ChatID, fmt.Sprintf(
					"💔 %s: %d/%d lives left.", student.DisplayName(), balance, settings.Lives.MaxLives))
			}
		}
	}
	s.log.Info("late sweep done", zap.Int("homeworks", len(late)))
}

// SweepLives restores lives for students whose auto-reset interval elapsed.
func (s *Sweeper) SweepLives(ctx context.Context, now time.Time) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		s.log.Error("lives sweep: load settings failed", zap.Error(err))
		return
	}
	resets, notices, err := s.ledger.SweepResets(ctx, now, settings.Lives)
	if err != nil {
		s.log.Error("lives sweep failed", zap.Error(err))
	}
	s.dispatcher.Notify(notices)
	if len(resets) > 0 {
		s.log.Info("lives sweep done", zap.Int("resets", len(resets)))
	}
}
