package domain

import "time"

// Homework is a single assignment. The only state transition is
// open → completed; LateNotified is an orthogonal one-shot flag set by
// the late sweep while the homework is still open.
type Homework struct {
	ID           int64
	StudentID    int64
	TutorID      int64
	TaskText     string
	Deadline     time.Time // UTC
	IsCompleted  bool
	CompletedAt  *time.Time // set iff IsCompleted
	LateNotified bool
	CreatedAt    time.Time
}

// IsLate reports whether the deadline has passed without completion.
func (h *Homework) IsLate(now time.Time) bool {
	return now.After(h.Deadline) && !h.IsCompleted
}
