package scheduler

import (
	"fmt"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
)

// Planner derives the reminder job set from an entity snapshot. Plan is a
// pure function of its inputs: calling it twice with the same snapshot and
// the same now yields the same jobs.
type Planner struct {
	defaultLoc *time.Location
}

func NewPlanner(defaultLoc *time.Location) *Planner {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Planner{defaultLoc: defaultLoc}
}

// Plan computes one job per (open entity, configured offset) whose fire time
// is still ahead. Offsets whose fire time has already passed are silently
// dropped; a reminder never fires retroactively.
func (p *Planner) Plan(homeworks []domain.Homework, lessons []domain.Lesson, students []domain.User, set *domain.Settings, now time.Time) []Job {
	byID := make(map[int64]*domain.User, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	var jobs []Job

	if set.HomeworkRemindersEnabled {
		for i := range homeworks {
			hw := &homeworks[i]
			if hw.IsCompleted || !hw.Deadline.After(now) {
				continue
			}
			st := byID[hw.StudentID]
			if st == nil {
				continue
			}
			for _, off := range set.HomeworkOffsets {
				fireAt := hw.Deadline.Add(-off)
				if !fireAt.After(now) {
					continue
				}
				jobs = append(jobs, Job{
					ID:     HomeworkJobID(off, hw.ID),
					Kind:   KindHomeworkReminder,
					FireAt: fireAt,
					ChatID: st.ChatID,
					Text:   p.homeworkReminderText(hw, st, off),
				})
			}
		}
	}

	if set.LessonRemindersEnabled {
		for i := range lessons {
			l := &lessons[i]
			if !l.NotifyStudent || !l.ScheduledAt.After(now) {
				continue
			}
			st := byID[l.StudentID]
			if st == nil {
				continue
			}
			for _, off := range set.LessonOffsets {
				fireAt := l.ScheduledAt.Add(-off)
				if !fireAt.After(now) {
					continue
				}
				jobs = append(jobs, Job{
					ID:     LessonJobID(off, l.ID),
					Kind:   KindLessonReminder,
					FireAt: fireAt,
					ChatID: st.ChatID,
					Text:   p.lessonReminderText(l, st, off),
				})
			}
		}
	}

	return jobs
}

// Message text is rendered at plan time, in the student's zone; the timer
// loop only needs a chat ID and a string at fire time.

func (p *Planner) homeworkReminderText(hw *domain.Homework, st *domain.User, off time.Duration) string {
	return fmt.Sprintf("⏰ Homework due in %s (%s):\n%s",
		domain.HumanDuration(off),
		domain.FormatDateTime(hw.Deadline, st.TZ, p.defaultLoc),
		hw.TaskText)
}

func (p *Planner) lessonReminderText(l *domain.Lesson, st *domain.User, off time.Duration) string {
	text := fmt.Sprintf("📅 Lesson in %s: %s",
		domain.HumanDuration(off),
		domain.FormatDateTime(l.ScheduledAt, st.TZ, p.defaultLoc))
	if l.Topic != "" {
		text += "\nTopic: " + l.Topic
	}
	return text
}
