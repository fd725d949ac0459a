package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/senya-a11/HelperTutor/internal/domain"
)

const (
	tutorStartText = "👨‍🏫 Welcome back! Use the panel below to manage students, homework and lessons."
	studentStartText = "👋 Hi! I will keep track of your homework and lessons and remind you before deadlines.\n\n" +
		"Use the buttons below."
	helpText = "Commands:\n" +
		"/start — register and show the menu\n" +
		"/menu — show the menu\n" +
		"/help — this message\n\n" +
		"Dates are entered as DD.MM.YYYY HH:MM (or just DD.MM.YYYY for end of day)."
	askDeadlineText   = "Enter the deadline (DD.MM.YYYY HH:MM, or DD.MM.YYYY for end of day):"
	askLessonTimeText = "Enter the lesson date and time (DD.MM.YYYY HH:MM):"
	askTopicText      = "Enter the lesson topic (or \"-\" to skip):"
	badDateText       = "I could not read that date. Example: 10.03.2025 18:00"
	notTutorText      = "This action is available to the tutor only."
)

func tutorMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Add homework", "add_hw"),
			tgbotapi.NewInlineKeyboardButtonData("📚 Homework", "list_hw"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Add lesson", "add_lesson"),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Lessons", "list_lessons"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Students", "students"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", "settings"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", "stats"),
		),
	)
}

func studentMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 My homework", "my_hw"),
			tgbotapi.NewInlineKeyboardButtonData("🗓 My lessons", "my_lessons"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❤️ My lives", "my_lives"),
			tgbotapi.NewInlineKeyboardButtonData("🌍 Timezone", "set_tz"),
		),
	)
}

// studentPickKeyboard lists students as buttons with the given callback prefix.
func studentPickKeyboard(students []domain.User, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(students)+1)
	for _, st := range students {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(st.DisplayName(), fmt.Sprintf("%s:%d", prefix, st.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "menu"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func settingsKeyboard(set *domain.Settings) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(onOff("HW reminders", set.HomeworkRemindersEnabled), "set_toggle:hw"),
			tgbotapi.NewInlineKeyboardButtonData(onOff("Lesson reminders", set.LessonRemindersEnabled), "set_toggle:lesson"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(onOff("Late alerts", set.LateAlertsEnabled), "set_toggle:late"),
			tgbotapi.NewInlineKeyboardButtonData(onOff("Lives", set.Lives.Enabled), "set_toggle:lives"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(onOff("Show lives to students", set.Lives.ShowToStudent), "set_toggle:show"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ HW offsets", "set_hw_offsets"),
			tgbotapi.NewInlineKeyboardButtonData("⏰ Lesson offsets", "set_lesson_offsets"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❤️ Max lives", "set_max_lives"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "menu"),
		),
	)
}

func onOff(label string, enabled bool) string {
	if enabled {
		return "✅ " + label
	}
	return "🚫 " + label
}

func settingsText(set *domain.Settings) string {
	return fmt.Sprintf(
		"⚙️ Settings\n\n"+
			"HW reminder offsets: %s\n"+
			"Lesson reminder offsets: %s\n"+
			"Max lives: %d\n"+
			"Penalty (late HW / missed lesson): %d / %d\n"+
			"Reward (early HW): %d\n"+
			"Lives auto-reset: every %s",
		domain.FormatOffsets(set.HomeworkOffsets),
		domain.FormatOffsets(set.LessonOffsets),
		set.Lives.MaxLives,
		set.Lives.PenaltyLateHomework, set.Lives.PenaltyMissedLesson,
		set.Lives.RewardEarlyHomework,
		domain.HumanDuration(set.Lives.AutoResetInterval),
	)
}
