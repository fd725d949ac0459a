// Package lesson implements the scheduled-session lifecycle. Lessons have no
// state machine beyond existence; "upcoming" is derived from the clock.
package lesson

import (
	"context"
	"errors"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/store"
)

var (
	ErrNotFound      = errors.New("lesson not found")
	ErrAlreadyMissed = errors.New("lesson already marked missed")
	ErrNotStarted    = errors.New("lesson has not started yet")
)

// MissedResult reports a missed-lesson penalty application.
type MissedResult struct {
	Lesson   *domain.Lesson
	Student  *domain.User
	Penalty  int
	Balance  int
	Notices  []lives.Notice
}

type Service struct {
	repo   store.Repo
	ledger *lives.Ledger
}

func NewService(repo store.Repo, ledger *lives.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

func (s *Service) Create(ctx context.Context, studentID, tutorID int64, at time.Time, topic string, durationMin int) (*domain.Lesson, error) {
	if durationMin <= 0 {
		durationMin = 60
	}
	l := &domain.Lesson{
		StudentID:     studentID,
		TutorID:       tutorID,
		ScheduledAt:   at.UTC(),
		Topic:         topic,
		DurationMin:   durationMin,
		NotifyStudent: true,
	}
	if err := s.repo.CreateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetNotify toggles the only mutable field of a lesson.
func (s *Service) SetNotify(ctx context.Context, lessonID int64, notify bool) error {
	if err := s.repo.SetLessonNotify(ctx, lessonID, notify); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MarkMissed records a no-show for a past lesson and applies the configured
// penalty through the ledger. Guarded by the Missed flag: at most once per
// lesson.
func (s *Service) MarkMissed(ctx context.Context, lessonID int64, now time.Time) (*MissedResult, error) {
	l, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if l.Missed {
		return nil, ErrAlreadyMissed
	}
	if l.ScheduledAt.After(now) {
		return nil, ErrNotStarted
	}

	if err := s.repo.MarkLessonMissed(ctx, l.ID); err != nil {
		return nil, err
	}
	l.Missed = true

	student, err := s.repo.GetUser(ctx, l.StudentID)
	if err != nil {
		return nil, err
	}
	res := &MissedResult{Lesson: l, Student: student, Balance: student.Lives}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Lives.PenaltyMissedLesson > 0 {
		balance, notices, err := s.ledger.Adjust(ctx, student, -settings.Lives.PenaltyMissedLesson, "missed lesson", settings.Lives)
		if err != nil {
			return nil, err
		}
		res.Penalty = settings.Lives.PenaltyMissedLesson
		res.Balance = balance
		res.Notices = notices
	}
	return res, nil
}
