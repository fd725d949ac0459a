// Package notify is the outbound-message boundary. Every send failure stops
// here: it is logged and swallowed, never propagated into the scheduler or a
// sweep. Delivery is at-most-once, best-effort.
package notify

import (
	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/lives"
)

// Notifier is the external send capability. The telegram Router implements it.
type Notifier interface {
	Send(chatID int64, text string) error
}

// Dispatcher delivers messages through the Notifier.
type Dispatcher struct {
	notifier Notifier
	log      *zap.Logger
}

func NewDispatcher(notifier Notifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, log: log}
}

// Send delivers one message, logging any failure.
func (d *Dispatcher) Send(chatID int64, text string) {
	if err := d.notifier.Send(chatID, text); err != nil {
		d.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// Notify delivers a batch of ledger notices with the same policy.
func (d *Dispatcher) Notify(notices []lives.Notice) {
	for _, n := range notices {
		d.Send(n.ChatID, n.Text)
	}
}
