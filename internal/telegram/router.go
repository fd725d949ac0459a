package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/homework"
	"github.com/senya-a11/HelperTutor/internal/lesson"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/store"
)

// Pending state keys used in conversational flows.
const (
	pendingHWText        = "await_hw_text"
	pendingHWDeadline    = "await_hw_deadline"
	pendingLessonTime    = "await_lesson_time"
	pendingLessonTopic   = "await_lesson_topic"
	pendingHWOffsets     = "await_hw_offsets"
	pendingLessonOffsets = "await_lesson_offsets"
	pendingMaxLives      = "await_max_lives"
	pendingTZ            = "await_tz"
)

// draft holds a mid-flight entity being collected over several messages.
// One per chat, discarded on cancel or commit, so a half-entered homework
// can never be saved against a stale student selection.
type draft struct {
	studentID int64
	text      string
	when      time.Time
}

// Router wires Telegram updates to handlers and holds the per-chat
// conversational state.
type Router struct {
	bot       *tgbotapi.BotAPI
	log       *zap.Logger
	repo      store.Repo
	homeworks *homework.Service
	lessons   *lesson.Service
	ledger    *lives.Ledger
	tutorID   int64
	loc       *time.Location

	// recompute is invoked after every mutation; set by the app once the
	// scheduler exists.
	recompute func(context.Context)

	mu     sync.RWMutex
	state  map[int64]string // chatID -> pending state
	drafts map[int64]*draft // chatID -> mid-flight entity
}

func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, hws *homework.Service, lessons *lesson.Service, ledger *lives.Ledger, tutorID int64, loc *time.Location) *Router {
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		bot:       bot,
		log:       log,
		repo:      repo,
		homeworks: hws,
		lessons:   lessons,
		ledger:    ledger,
		tutorID:   tutorID,
		loc:       loc,
		recompute: func(context.Context) {},
		state:     make(map[int64]string),
		drafts:    make(map[int64]*draft),
	}
}

// SetRecompute binds the scheduler's recompute hook.
func (r *Router) SetRecompute(fn func(context.Context)) {
	if fn != nil {
		r.recompute = fn
	}
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
	delete(r.drafts, chatID)
}

func (r *Router) setDraft(chatID int64, d *draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[chatID] = d
}

func (r *Router) getDraft(chatID int64) *draft {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.drafts[chatID]
}

func (r *Router) isTutor(chatID int64) bool { return chatID == r.tutorID }

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, msg)
		case strings.HasPrefix(text, "/menu"):
			r.showMenu(ctx, chatID)
		case strings.HasPrefix(text, "/help"):
			r.sendText(chatID, helpText)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		r.handleCallback(ctx, cb.Message.Chat.ID, cb.Data, cb.ID)
	}
}

// Send delivers a plain text message. This makes Router satisfy
// notify.Notifier.
func (r *Router) Send(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if err := r.Send(chatID, text); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) sendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) answerCallback(id string) {
	_, _ = r.bot.Request(tgbotapi.NewCallback(id, ""))
}
