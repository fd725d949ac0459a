// Package homework implements the assignment lifecycle: creation and the
// single open → completed transition with its early/late outcome.
package homework

import (
	"context"
	"errors"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/store"
)

var (
	// ErrNotFound covers both a missing homework and one belonging to a
	// different student; the caller sees the same message either way.
	ErrNotFound         = errors.New("homework not found")
	ErrAlreadyCompleted = errors.New("homework already completed")
)

// Outcome of a completion relative to the deadline.
type Outcome string

const (
	OutcomeEarly Outcome = "early"
	OutcomeLate  Outcome = "late"
)

// CompleteResult is everything the caller needs to report a completion:
// the outcome, the (possibly rewarded) balance and the ledger notices.
type CompleteResult struct {
	Homework *domain.Homework
	Student  *domain.User
	Outcome  Outcome
	Rewarded int
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

// Create stores a new assignment. Past deadlines are allowed; such homework
// is immediately late-eligible for the sweep.
func (s *Service) Create(ctx context.Context, studentID, tutorID int64, text string, deadline time.Time) (*domain.Homework, error) {
	hw := &domain.Homework{
		StudentID: studentID,
		TutorID:   tutorID,
		TaskText:  text,
		Deadline:  deadline.UTC(),
	}
	if err := s.repo.CreateHomework(ctx, hw); err != nil {
		return nil, err
	}
	return hw, nil
}

// Complete marks the homework done. This is the only transition out of the
// open state. Early completion (deadline still ahead) credits the configured
// reward through the ledger.
func (s *Service) Complete(ctx context.Context, homeworkID, studentID int64, now time.Time) (*CompleteResult, error) {
	hw, err := s.repo.GetHomework(ctx, homeworkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if hw.StudentID != studentID {
		return nil, ErrNotFound
	}
	if hw.IsCompleted {
		return nil, ErrAlreadyCompleted
	}

	now = now.UTC()
	if err := s.repo.MarkHomeworkCompleted(ctx, hw.ID, now); err != nil {
		return nil, err
	}
	hw.IsCompleted = true
	hw.CompletedAt = &now

	student, err := s.repo.GetUser(ctx, hw.StudentID)
	if err != nil {
		return nil, err
	}

	res := &CompleteResult{
		Homework: hw,
		Student:  student,
		Outcome:  OutcomeLate,
		Balance:  student.Lives,
	}
	if hw.Deadline.After(now) {
		res.Outcome = OutcomeEarly
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeEarly && settings.Lives.RewardEarlyHomework > 0 {
		balance, notices, err := s.ledger.Adjust(ctx, student, settings.Lives.RewardEarlyHomework, "early homework", settings.Lives)
		if err != nil {
			return nil, err
		}
		res.Rewarded = settings.Lives.RewardEarlyHomework
		res.Balance = balance
		res.Notices = notices
	}
	return res, nil
}
