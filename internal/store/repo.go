package store

import (
	"context"
	"errors"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
)

// ErrNotFound is returned when a referenced entity does not exist
// (it may have been deleted between a menu render and the action).
var ErrNotFound = errors.New("not found")

// Stats are read-only counts exposed by the /stats endpoint.
type Stats struct {
	Students        int `json:"students"`
	OpenHomeworks   int `json:"open_homeworks"`
	UpcomingLessons int `json:"upcoming_lessons"`
}

// Repo defines storage operations over users, homeworks, lessons and settings.
type Repo interface {
	// Users.
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*domain.User, error)
	GetTutor(ctx context.Context) (*domain.User, error)
	ListStudents(ctx context.Context) ([]domain.User, error)
	SetUserTZ(ctx context.Context, id int64, tz string) error
	SetLives(ctx context.Context, id int64, lives int) error
	SetLivesReset(ctx context.Context, id int64, lives int, resetAt time.Time) error
	// DeleteStudent removes the student and cascades to their homeworks and lessons.
	DeleteStudent(ctx context.Context, id int64) error

	// Homeworks.
	CreateHomework(ctx context.Context, hw *domain.Homework) error
	GetHomework(ctx context.Context, id int64) (*domain.Homework, error)
	ListHomeworksByStudent(ctx context.Context, studentID int64) ([]domain.Homework, error)
	// ListActiveHomeworks returns open homeworks whose deadline is still ahead.
	ListActiveHomeworks(ctx context.Context, now time.Time) ([]domain.Homework, error)
	// ListLateHomeworks returns open homeworks past deadline and not yet late-notified.
	ListLateHomeworks(ctx context.Context, now time.Time) ([]domain.Homework, error)
	MarkHomeworkCompleted(ctx context.Context, id int64, at time.Time) error
	MarkHomeworkLateNotified(ctx context.Context, id int64) error

	// Lessons.
	CreateLesson(ctx context.Context, l *domain.Lesson) error
	GetLesson(ctx context.Context, id int64) (*domain.Lesson, error)
	ListLessonsByStudent(ctx context.Context, studentID int64) ([]domain.Lesson, error)
	ListUpcomingLessons(ctx context.Context, now time.Time) ([]domain.Lesson, error)
	SetLessonNotify(ctx context.Context, id int64, notify bool) error
	MarkLessonMissed(ctx context.Context, id int64) error

	// Settings (single row; created with defaults on first read).
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, s *domain.Settings) error

	Counts(ctx context.Context, now time.Time) (Stats, error)
	Close() error
}
