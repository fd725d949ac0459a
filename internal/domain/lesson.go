package domain

import "time"

// Lesson is a scheduled session. Immutable after creation except for the
// NotifyStudent toggle and the one-shot Missed flag.
type Lesson struct {
	ID            int64
	StudentID     int64
	TutorID       int64
	ScheduledAt   time.Time // UTC
	Topic         string
	DurationMin   int
	NotifyStudent bool
	Missed        bool
	CreatedAt     time.Time
}

func (l *Lesson) IsUpcoming(now time.Time) bool {
	return l.ScheduledAt.After(now)
}
