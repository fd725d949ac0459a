// Package lives implements the bounded lives counter. The ledger itself
// performs no messaging I/O: every operation returns the notices it wants
// delivered, and the caller hands them to the dispatcher.
package lives

import (
	"context"
	"fmt"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/store"
)

// Notice is a pending notification produced by a ledger operation.
type Notice struct {
	ChatID int64
	Text   string
}

// Ledger adjusts and resets student lives balances.
type Ledger struct {
	repo store.Repo
}

func NewLedger(repo store.Repo) *Ledger {
	return &Ledger{repo: repo}
}

// Adjust clamps student.Lives+delta into [0, MaxLives] and persists the new
// balance. When the policy is disabled the call is a no-op returning the
// current balance. The student struct is updated in place on success.
func (l *Ledger) Adjust(ctx context.Context, student *domain.User, delta int, reason string, policy domain.LivesPolicy) (int, []Notice, error) {
	if !policy.Enabled {
		return student.Lives, nil, nil
	}

	balance := policy.Clamp(student.Lives + delta)
	if balance == student.Lives {
		return balance, nil, nil
	}
	if err := l.repo.SetLives(ctx, student.ID, balance); err != nil {
		return student.Lives, nil, err
	}
	student.Lives = balance

	var notices []Notice
	if delta != 0 && policy.ShowToStudent {
		notices = append(notices, Notice{
			ChatID: student.ChatID,
			Text:   balanceText(delta, balance, policy.MaxLives, reason),
		})
	}
	return balance, notices, nil
}

// SweepResets restores Lives to MaxLives for every student whose last reset
// is a full interval (or more) in the past. Each reset moves LastLifeReset
// to now, so a student handled in one sweep is not eligible again until a
// full interval has elapsed from the new reset time.
func (l *Ledger) SweepResets(ctx context.Context, now time.Time, policy domain.LivesPolicy) ([]domain.User, []Notice, error) {
	if !policy.Enabled || policy.AutoResetInterval <= 0 {
		return nil, nil, nil
	}

	students, err := l.repo.ListStudents(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		resets  []domain.User
		notices []Notice
	)
	for i := range students {
		st := &students[i]
		if now.Sub(st.LastLifeReset) < policy.AutoResetInterval {
			continue
		}
		if err := l.repo.SetLivesReset(ctx, st.ID, policy.MaxLives, now); err != nil {
			return resets, notices, err
		}
		st.Lives = policy.MaxLives
		st.LastLifeReset = now
		resets = append(resets, *st)
		if policy.ShowToStudent {
			notices = append(notices, Notice{
				ChatID: st.ChatID,
				Text:   fmt.Sprintf("🎉 Fresh start! Your lives are restored to %d/%d.", policy.MaxLives, policy.MaxLives),
			})
		}
	}
	return resets, notices, nil
}

// ClampAll immediately limits every student balance to the new ceiling.
// Called when the tutor lowers MaxLives; there is no lazy clamp.
func (l *Ledger) ClampAll(ctx context.Context, policy domain.LivesPolicy) error {
	students, err := l.repo.ListStudents(ctx)
	if err != nil {
		return err
	}
	for _, st := range students {
		if st.Lives > policy.MaxLives {
			if err := l.repo.SetLives(ctx, st.ID, policy.MaxLives); err != nil {
				return err
			}
		}
	}
	return nil
}

func balanceText(delta, balance, max int, reason string) string {
	if delta > 0 {
		return fmt.Sprintf("❤️ +%d life (%s). Balance: %d/%d.", delta, reason, balance, max)
	}
	return fmt.Sprintf("💔 %d life (%s). Balance: %d/%d.", delta, reason, balance, max)
}
