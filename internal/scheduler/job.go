package scheduler

import (
	"fmt"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
)

// Kind distinguishes entity-derived reminders from the singleton sweeps.
type Kind string

const (
	KindHomeworkReminder Kind = "hw"
	KindLessonReminder   Kind = "lesson"
	KindLateSweep        Kind = "sweep-late"
	KindLivesSweep       Kind = "sweep-lives"
)

// Singleton job IDs. These survive every recompute.
const (
	LateSweepJobID  = "sweep:late"
	LivesSweepJobID = "sweep:lives"
)

// Job is one scheduled fire. IDs are deterministic per (entity, offset)
// pair, so re-registering the same job replaces rather than duplicates.
type Job struct {
	ID     string
	Kind   Kind
	FireAt time.Time // UTC
	ChatID int64
	Text   string
}

// Derived reports whether the job is recomputed from entity state
// (as opposed to a stable singleton sweep).
func (j Job) Derived() bool {
	return j.Kind == KindHomeworkReminder || j.Kind == KindLessonReminder
}

// HomeworkJobID builds "hw:{offset}:{id}", e.g. "hw:1h:42".
func HomeworkJobID(offset time.Duration, homeworkID int64) string {
	return fmt.Sprintf("hw:%s:%d", domain.OffsetLabel(offset), homeworkID)
}

// LessonJobID builds "lesson:{offset}:{id}".
func LessonJobID(offset time.Duration, lessonID int64) string {
	return fmt.Sprintf("lesson:%s:%d", domain.OffsetLabel(offset), lessonID)
}
