package domain

import "time"

// Settings is the process-wide, tutor-editable notification configuration.
// Stored as a single repository row.
type Settings struct {
	HomeworkOffsets          []time.Duration // before deadline
	LessonOffsets            []time.Duration // before lesson start
	HomeworkRemindersEnabled bool
	LessonRemindersEnabled   bool
	LateAlertsEnabled        bool
	Lives                    LivesPolicy
}

// LivesPolicy configures the lives gamification counter.
type LivesPolicy struct {
	Enabled             bool
	MaxLives            int
	PenaltyLateHomework int
	PenaltyMissedLesson int
	RewardEarlyHomework int
	AutoResetInterval   time.Duration
	ShowToStudent       bool
}

// Clamp limits a balance to [0, MaxLives].
func (p LivesPolicy) Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > p.MaxLives {
		return p.MaxLives
	}
	return v
}

// DefaultSettings returns the configuration a fresh deployment starts with.
func DefaultSettings() Settings {
	return Settings{
		HomeworkOffsets:          []time.Duration{24 * time.Hour, time.Hour},
		LessonOffsets:            []time.Duration{24 * time.Hour, time.Hour},
		HomeworkRemindersEnabled: true,
		LessonRemindersEnabled:   true,
		LateAlertsEnabled:        true,
		Lives: LivesPolicy{
			Enabled:             true,
			MaxLives:            5,
			PenaltyLateHomework: 1,
			PenaltyMissedLesson: 1,
			RewardEarlyHomework: 1,
			AutoResetInterval:   30 * 24 * time.Hour,
			ShowToStudent:       true,
		},
	}
}
