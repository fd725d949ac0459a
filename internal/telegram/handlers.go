package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/domain"
	"github.com/senya-a11/HelperTutor/internal/homework"
	"github.com/senya-a11/HelperTutor/internal/lesson"
	"github.com/senya-a11/HelperTutor/internal/store"
)

// --- Registration and menus ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	role := domain.RoleStudent
	if r.isTutor(chatID) {
		role = domain.RoleTutor
	}

	_, lookupErr := r.repo.GetUserByChatID(ctx, chatID)
	firstSeen := errors.Is(lookupErr, store.ErrNotFound)

	u := &domain.User{
		ChatID:   chatID,
		Username: msg.From.UserName,
		FullName: strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
		Role:     role,
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		r.log.Error("register user failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "Registration error. Please try again later.")
		return
	}

	// A brand-new student starts with a full lives balance.
	if firstSeen && role == domain.RoleStudent {
		if set, err := r.repo.GetSettings(ctx); err == nil {
			if err := r.repo.SetLivesReset(ctx, u.ID, set.Lives.MaxLives, time.Now().UTC()); err != nil {
				r.log.Warn("seed lives failed", zap.Error(err), zap.Int64("userID", u.ID))
			}
		}
	}

	if role == domain.RoleTutor {
		r.sendKeyboard(chatID, tutorStartText, tutorMenuKeyboard())
	} else {
		r.sendKeyboard(chatID, studentStartText, studentMenuKeyboard())
	}
}

func (r *Router) showMenu(ctx context.Context, chatID int64) {
	if r.isTutor(chatID) {
		r.sendKeyboard(chatID, "📊 Control panel:", tutorMenuKeyboard())
		return
	}
	r.sendKeyboard(chatID, "Your menu:", studentMenuKeyboard())
}

// requireUser loads the registered user for a chat, prompting /start if absent.
func (r *Router) requireUser(ctx context.Context, chatID int64) *domain.User {
	u, err := r.repo.GetUserByChatID(ctx, chatID)
	if err != nil {
		r.sendText(chatID, "Please run /start first.")
		return nil
	}
	return u
}

// --- Callback routing ---

func (r *Router) handleCallback(ctx context.Context, chatID int64, data, cbID string) {
	r.answerCallback(cbID)

	switch {
	case data == "menu":
		r.clearPending(chatID)
		r.showMenu(ctx, chatID)

	// Tutor: homework.
	case data == "add_hw":
		r.askStudentPick(ctx, chatID, "hw_student", "Whose homework is it?")
	case strings.HasPrefix(data, "hw_student:"):
		r.startHomeworkDraft(ctx, chatID, idSuffix(data))
	case data == "list_hw":
		r.listAllHomework(ctx, chatID)

	// Tutor: lessons.
	case data == "add_lesson":
		r.askStudentPick(ctx, chatID, "lesson_student", "Whose lesson is it?")
	case strings.HasPrefix(data, "lesson_student:"):
		r.startLessonDraft(ctx, chatID, idSuffix(data))
	case data == "list_lessons":
		r.listAllLessons(ctx, chatID)
	case strings.HasPrefix(data, "lesson_notify:"):
		r.toggleLessonNotify(ctx, chatID, idSuffix(data))
	case strings.HasPrefix(data, "lesson_missed:"):
		r.markLessonMissed(ctx, chatID, idSuffix(data))

	// Tutor: students.
	case data == "students":
		r.listStudents(ctx, chatID)
	case strings.HasPrefix(data, "student_del_yes:"):
		r.deleteStudent(ctx, chatID, idSuffix(data))
	case strings.HasPrefix(data, "student_del:"):
		r.confirmDeleteStudent(ctx, chatID, idSuffix(data))
	case strings.HasPrefix(data, "student:"):
		r.showStudent(ctx, chatID, idSuffix(data))

	// Tutor: settings and stats.
	case data == "settings":
		r.showSettings(ctx, chatID)
	case strings.HasPrefix(data, "set_toggle:"):
		r.toggleSetting(ctx, chatID, strings.TrimPrefix(data, "set_toggle:"))
	case data == "set_hw_offsets":
		r.setPending(chatID, pendingHWOffsets)
		r.sendText(chatID, "Enter homework reminder offsets, e.g.: 24h,1h")
	case data == "set_lesson_offsets":
		r.setPending(chatID, pendingLessonOffsets)
		r.sendText(chatID, "Enter lesson reminder offsets, e.g.: 24h,1h")
	case data == "set_max_lives":
		r.setPending(chatID, pendingMaxLives)
		r.sendText(chatID, "Enter the maximum number of lives (0 or more):")
	case data == "stats":
		r.showStats(ctx, chatID)

	// Student.
	case data == "my_hw":
		r.listMyHomework(ctx, chatID)
	case strings.HasPrefix(data, "hw_done:"):
		r.completeHomework(ctx, chatID, idSuffix(data))
	case data == "my_lessons":
		r.listMyLessons(ctx, chatID)
	case data == "my_lives":
		r.showMyLives(ctx, chatID)
	case data == "set_tz":
		r.setPending(chatID, pendingTZ)
		r.sendText(chatID, "Enter your timezone, e.g.: Europe/Moscow")

	default:
		// Unknown callback — ignore silently.
	}
}

func idSuffix(data string) int64 {
	parts := strings.Split(data, ":")
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

// --- Free-form dispatcher (multi-step flows) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	switch r.getPending(chatID) {
	case pendingHWText:
		d := r.getDraft(chatID)
		if d == nil {
			r.clearPending(chatID)
			return
		}
		d.text = text
		r.setPending(chatID, pendingHWDeadline)
		r.sendText(chatID, askDeadlineText)

	case pendingHWDeadline:
		r.finishHomeworkDraft(ctx, chatID, text)

	case pendingLessonTime:
		d := r.getDraft(chatID)
		if d == nil {
			r.clearPending(chatID)
			return
		}
		when, err := r.parseInStudentZone(ctx, d.studentID, text)
		if err != nil {
			r.sendText(chatID, badDateText)
			return
		}
		d.when = when
		r.setPending(chatID, pendingLessonTopic)
		r.sendText(chatID, askTopicText)

	case pendingLessonTopic:
		r.finishLessonDraft(ctx, chatID, text)

	case pendingHWOffsets, pendingLessonOffsets:
		r.saveOffsets(ctx, chatID, text)

	case pendingMaxLives:
		r.saveMaxLives(ctx, chatID, text)

	case pendingTZ:
		r.saveTZ(ctx, chatID, text)

	default:
		// No pending flow: nudge toward the menu.
		r.sendText(chatID, "Use /menu to see available actions.")
	}
}

// --- Homework flows ---

func (r *Router) askStudentPick(ctx context.Context, chatID int64, prefix, title string) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	students, err := r.repo.ListStudents(ctx)
	if err != nil {
		r.log.Error("list students failed", zap.Error(err))
		r.sendText(chatID, "Error reading students.")
		return
	}
	if len(students) == 0 {
		r.sendText(chatID, "No students registered yet. Students appear after their first /start.")
		return
	}
	r.sendKeyboard(chatID, title, studentPickKeyboard(students, prefix))
}

func (r *Router) startHomeworkDraft(ctx context.Context, chatID, studentID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	if _, err := r.repo.GetUser(ctx, studentID); err != nil {
		r.sendText(chatID, "That student no longer exists.")
		return
	}
	r.setDraft(chatID, &draft{studentID: studentID})
	r.setPending(chatID, pendingHWText)
	r.sendText(chatID, "Enter the homework text:")
}

func (r *Router) finishHomeworkDraft(ctx context.Context, chatID int64, deadlineText string) {
	d := r.getDraft(chatID)
	if d == nil {
		r.clearPending(chatID)
		return
	}
	deadline, err := r.parseInStudentZone(ctx, d.studentID, deadlineText)
	if err != nil {
		r.sendText(chatID, badDateText)
		return
	}

	tutor := r.requireUser(ctx, chatID)
	if tutor == nil {
		return
	}
	hw, err := r.homeworks.Create(ctx, d.studentID, tutor.ID, d.text, deadline)
	if err != nil {
		r.log.Error("create homework failed", zap.Error(err))
		r.sendText(chatID, "Could not save the homework.")
		return
	}
	r.clearPending(chatID)
	r.recompute(ctx)

	student, err := r.repo.GetUser(ctx, hw.StudentID)
	if err == nil {
		r.sendText(student.ChatID, fmt.Sprintf("📝 New homework (due %s):\n%s",
			domain.FormatDateTime(hw.Deadline, student.TZ, r.loc), hw.TaskText))
		r.sendText(chatID, fmt.Sprintf("Saved. %s has homework due %s.",
			student.DisplayName(), domain.FormatDateTime(hw.Deadline, student.TZ, r.loc)))
	}
}

func (r *Router) listAllHomework(ctx context.Context, chatID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	students, err := r.repo.ListStudents(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading homework.")
		return
	}
	var b strings.Builder
	b.WriteString("📚 Open homework:\n")
	count := 0
	for _, st := range students {
		hws, err := r.repo.ListHomeworksByStudent(ctx, st.ID)
		if err != nil {
			continue
		}
		for _, hw := range hws {
			if hw.IsCompleted {
				continue
			}
			count++
			fmt.Fprintf(&b, "\n👤 %s — due %s\n%s\n",
				st.DisplayName(), domain.FormatDateTime(hw.Deadline, "", r.loc), hw.TaskText)
		}
	}
	if count == 0 {
		r.sendText(chatID, "📭 No open homework.")
		return
	}
	r.sendText(chatID, b.String())
}

func (r *Router) listMyHomework(ctx context.Context, chatID int64) {
	u := r.requireUser(ctx, chatID)
	if u == nil {
		return
	}
	hws, err := r.repo.ListHomeworksByStudent(ctx, u.ID)
	if err != nil {
		r.sendText(chatID, "Error reading your homework.")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var b strings.Builder
	b.WriteString("📚 Your homework:\n")
	open := 0
	for _, hw := range hws {
		if hw.IsCompleted {
			continue
		}
		open++
		fmt.Fprintf(&b, "\n#%d — due %s\n%s\n", hw.ID,
			domain.FormatDateTime(hw.Deadline, u.TZ, r.loc), hw.TaskText)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Done #%d", hw.ID), fmt.Sprintf("hw_done:%d", hw.ID)),
		))
	}
	if open == 0 {
		r.sendText(chatID, "📭 No open homework. Enjoy!")
		return
	}
	r.sendKeyboard(chatID, b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (r *Router) completeHomework(ctx context.Context, chatID, hwID int64) {
	u := r.requireUser(ctx, chatID)
	if u == nil {
		return
	}
	res, err := r.homeworks.Complete(ctx, hwID, u.ID, time.Now().UTC())
	switch {
	case errors.Is(err, homework.ErrAlreadyCompleted):
		r.sendText(chatID, "That homework is already marked as done.")
		return
	case errors.Is(err, homework.ErrNotFound):
		r.sendText(chatID, "I can't find that homework. It may have been removed.")
		return
	case err != nil:
		r.log.Error("complete homework failed", zap.Error(err), zap.Int64("homeworkID", hwID))
		r.sendText(chatID, "Something went wrong, please try again.")
		return
	}
	r.recompute(ctx)

	if res.Outcome == homework.OutcomeEarly {
		r.sendText(chatID, "✅ Done, ahead of the deadline. Nice!")
	} else {
		r.sendText(chatID, "✅ Done. It was past the deadline, but better late than never.")
	}
	for _, n := range res.Notices {
		r.sendText(n.ChatID, n.Text)
	}

	tutorText := fmt.Sprintf("✅ %s completed homework #%d (%s).", res.Student.DisplayName(), res.Homework.ID, res.Outcome)
	if res.Rewarded > 0 {
		tutorText += fmt.Sprintf(" Lives: %d.", res.Balance)
	}
	r.sendText(r.tutorID, tutorText)
}

// --- Lesson flows ---

func (r *Router) startLessonDraft(ctx context.Context, chatID, studentID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	if _, err := r.repo.GetUser(ctx, studentID); err != nil {
		r.sendText(chatID, "That student no longer exists.")
		return
	}
	r.setDraft(chatID, &draft{studentID: studentID})
	r.setPending(chatID, pendingLessonTime)
	r.sendText(chatID, askLessonTimeText)
}

func (r *Router) finishLessonDraft(ctx context.Context, chatID int64, topic string) {
	d := r.getDraft(chatID)
	if d == nil {
		r.clearPending(chatID)
		return
	}
	if topic == "-" {
		topic = ""
	}
	tutor := r.requireUser(ctx, chatID)
	if tutor == nil {
		return
	}
	l, err := r.lessons.Create(ctx, d.studentID, tutor.ID, d.when, topic, 60)
	if err != nil {
		r.log.Error("create lesson failed", zap.Error(err))
		r.sendText(chatID, "Could not save the lesson.")
		return
	}
	r.clearPending(chatID)
	r.recompute(ctx)

	student, err := r.repo.GetUser(ctx, l.StudentID)
	if err == nil {
		when := domain.FormatDateTime(l.ScheduledAt, student.TZ, r.loc)
		if l.NotifyStudent {
			text := "📅 New lesson: " + when
			if l.Topic != "" {
				text += "\nTopic: " + l.Topic
			}
			r.sendText(student.ChatID, text)
		}
		r.sendText(chatID, fmt.Sprintf("Saved. Lesson with %s at %s.", student.DisplayName(), when))
	}
}

func (r *Router) listAllLessons(ctx context.Context, chatID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	upcoming, err := r.repo.ListUpcomingLessons(ctx, time.Now().UTC())
	if err != nil {
		r.sendText(chatID, "Error reading lessons.")
		return
	}
	if len(upcoming) == 0 {
		r.sendText(chatID, "📭 No upcoming lessons.")
		return
	}
	var b strings.Builder
	b.WriteString("🗓 Upcoming lessons:\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, l := range upcoming {
		st, err := r.repo.GetUser(ctx, l.StudentID)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n#%d %s — %s", l.ID, st.DisplayName(), domain.FormatDateTime(l.ScheduledAt, "", r.loc))
		if l.Topic != "" {
			b.WriteString(" (" + l.Topic + ")")
		}
		notifyLabel := "🔔"
		if !l.NotifyStudent {
			notifyLabel = "🔕"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d", notifyLabel, l.ID), fmt.Sprintf("lesson_notify:%d", l.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🚫 Missed #%d", l.ID), fmt.Sprintf("lesson_missed:%d", l.ID)),
		))
	}
	r.sendKeyboard(chatID, b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (r *Router) toggleLessonNotify(ctx context.Context, chatID, lessonID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	l, err := r.repo.GetLesson(ctx, lessonID)
	if err != nil {
		r.sendText(chatID, "That lesson no longer exists.")
		return
	}
	if err := r.lessons.SetNotify(ctx, lessonID, !l.NotifyStudent); err != nil {
		r.sendText(chatID, "Could not update the lesson.")
		return
	}
	r.recompute(ctx)
	if l.NotifyStudent {
		r.sendText(chatID, fmt.Sprintf("🔕 Reminders off for lesson #%d.", lessonID))
	} else {
		r.sendText(chatID, fmt.Sprintf("🔔 Reminders on for lesson #%d.", lessonID))
	}
}

func (r *Router) markLessonMissed(ctx context.Context, chatID, lessonID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	res, err := r.lessons.MarkMissed(ctx, lessonID, time.Now().UTC())
	switch {
	case errors.Is(err, lesson.ErrAlreadyMissed):
		r.sendText(chatID, "That lesson is already marked as missed.")
		return
	case errors.Is(err, lesson.ErrNotStarted):
		r.sendText(chatID, "That lesson has not started yet.")
		return
	case errors.Is(err, lesson.ErrNotFound):
		r.sendText(chatID, "I can't find that lesson.")
		return
	case err != nil:
		r.log.Error("mark missed failed", zap.Error(err), zap.Int64("lessonID", lessonID))
		r.sendText(chatID, "Something went wrong, please try again.")
		return
	}
	for _, n := range res.Notices {
		r.sendText(n.ChatID, n.Text)
	}
	text := fmt.Sprintf("Marked lesson #%d as missed by %s.", lessonID, res.Student.DisplayName())
	if res.Penalty > 0 {
		text += fmt.Sprintf(" Lives: %d.", res.Balance)
	}
	r.sendText(chatID, text)
}

func (r *Router) listMyLessons(ctx context.Context, chatID int64) {
	u := r.requireUser(ctx, chatID)
	if u == nil {
		return
	}
	lessons, err := r.repo.ListLessonsByStudent(ctx, u.ID)
	if err != nil {
		r.sendText(chatID, "Error reading your lessons.")
		return
	}
	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString("🗓 Your upcoming lessons:\n")
	count := 0
	for _, l := range lessons {
		if !l.IsUpcoming(now) {
			continue
		}
		count++
		fmt.Fprintf(&b, "\n%s", domain.FormatDateTime(l.ScheduledAt, u.TZ, r.loc))
		if l.Topic != "" {
			b.WriteString(" — " + l.Topic)
		}
	}
	if count == 0 {
		r.sendText(chatID, "📭 No upcoming lessons.")
		return
	}
	r.sendText(chatID, b.String())
}

// --- Student management ---

func (r *Router) listStudents(ctx context.Context, chatID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	students, err := r.repo.ListStudents(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading students.")
		return
	}
	if len(students) == 0 {
		r.sendText(chatID, "No students registered yet.")
		return
	}
	r.sendKeyboard(chatID, "👥 Students:", studentPickKeyboard(students, "student"))
}

func (r *Router) showStudent(ctx context.Context, chatID, studentID int64) {
	st, err := r.repo.GetUser(ctx, studentID)
	if err != nil {
		r.sendText(chatID, "That student no longer exists.")
		return
	}
	set, err := r.repo.GetSettings(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading settings.")
		return
	}
	text := fmt.Sprintf("👤 %s\nLives: %d/%d\nTimezone: %s",
		st.DisplayName(), st.Lives, set.Lives.MaxLives, orDefault(st.TZ, r.loc.String()))
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("student_del:%d", st.ID)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "students"),
		),
	)
	r.sendKeyboard(chatID, text, kb)
}

func (r *Router) confirmDeleteStudent(ctx context.Context, chatID, studentID int64) {
	st, err := r.repo.GetUser(ctx, studentID)
	if err != nil {
		r.sendText(chatID, "That student no longer exists.")
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", fmt.Sprintf("student_del_yes:%d", st.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "students"),
		),
	)
	r.sendKeyboard(chatID, fmt.Sprintf(
		"Delete %s? Their homework and lessons will be removed as well.", st.DisplayName()), kb)
}

func (r *Router) deleteStudent(ctx context.Context, chatID, studentID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	if err := r.repo.DeleteStudent(ctx, studentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendText(chatID, "That student no longer exists.")
			return
		}
		r.log.Error("delete student failed", zap.Error(err), zap.Int64("studentID", studentID))
		r.sendText(chatID, "Could not delete the student.")
		return
	}
	r.recompute(ctx)
	r.sendText(chatID, "Deleted.")
}

// --- Settings, stats, personal ---

func (r *Router) showSettings(ctx context.Context, chatID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	set, err := r.repo.GetSettings(ctx)
	if err != nil {
		r.log.Error("get settings failed", zap.Error(err))
		r.sendText(chatID, "Error reading settings.")
		return
	}
	r.sendKeyboard(chatID, settingsText(set), settingsKeyboard(set))
}

func (r *Router) toggleSetting(ctx context.Context, chatID int64, key string) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	set, err := r.repo.GetSettings(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading settings.")
		return
	}
	switch key {
	case "hw":
		set.HomeworkRemindersEnabled = !set.HomeworkRemindersEnabled
	case "lesson":
		set.LessonRemindersEnabled = !set.LessonRemindersEnabled
	case "late":
		set.LateAlertsEnabled = !set.LateAlertsEnabled
	case "lives":
		set.Lives.Enabled = !set.Lives.Enabled
	case "show":
		set.Lives.ShowToStudent = !set.Lives.ShowToStudent
	default:
		return
	}
	if err := r.repo.SaveSettings(ctx, set); err != nil {
		r.log.Error("save settings failed", zap.Error(err))
		r.sendText(chatID, "Could not save settings.")
		return
	}
	r.recompute(ctx)
	r.showSettings(ctx, chatID)
}

func (r *Router) saveOffsets(ctx context.Context, chatID int64, text string) {
	pending := r.getPending(chatID)
	offsets, err := domain.ParseOffsets(text)
	if err != nil {
		r.sendText(chatID, "Invalid offsets. Example: 24h,1h")
		return
	}
	set, err := r.repo.GetSettings(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading settings.")
		return
	}
	if pending == pendingHWOffsets {
		set.HomeworkOffsets = offsets
	} else {
		set.LessonOffsets = offsets
	}
	if err := r.repo.SaveSettings(ctx, set); err != nil {
		r.sendText(chatID, "Could not save settings.")
		return
	}
	r.clearPending(chatID)
	r.recompute(ctx)
	r.sendText(chatID, "Offsets updated: "+domain.FormatOffsets(offsets))
}

func (r *Router) saveMaxLives(ctx context.Context, chatID int64, text string) {
	maxLives, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || maxLives < 0 {
		r.sendText(chatID, "Enter a whole number, 0 or more.")
		return
	}
	set, err := r.repo.GetSettings(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading settings.")
		return
	}
	set.Lives.MaxLives = maxLives
	if err := r.repo.SaveSettings(ctx, set); err != nil {
		r.sendText(chatID, "Could not save settings.")
		return
	}
	// Lowering the ceiling clamps every balance right away.
	if err := r.ledger.ClampAll(ctx, set.Lives); err != nil {
		r.log.Error("clamp lives failed", zap.Error(err))
	}
	r.clearPending(chatID)
	r.recompute(ctx)
	r.sendText(chatID, fmt.Sprintf("Max lives set to %d.", maxLives))
}

func (r *Router) saveTZ(ctx context.Context, chatID int64, text string) {
	tz, err := domain.ValidateTZ(strings.TrimSpace(text))
	if err != nil {
		r.sendText(chatID, "Invalid timezone. Example: Europe/Moscow")
		return
	}
	u := r.requireUser(ctx, chatID)
	if u == nil {
		return
	}
	if err := r.repo.SetUserTZ(ctx, u.ID, tz); err != nil {
		r.sendText(chatID, "Could not save the timezone.")
		return
	}
	r.clearPending(chatID)
	r.recompute(ctx)
	r.sendText(chatID, "Timezone updated: "+tz)
}

func (r *Router) showStats(ctx context.Context, chatID int64) {
	if !r.isTutor(chatID) {
		r.sendText(chatID, notTutorText)
		return
	}
	st, err := r.repo.Counts(ctx, time.Now().UTC())
	if err != nil {
		r.sendText(chatID, "Error reading stats.")
		return
	}
	r.sendText(chatID, fmt.Sprintf(
		"📊 Stats\nStudents: %d\nOpen homework: %d\nUpcoming lessons: %d",
		st.Students, st.OpenHomeworks, st.UpcomingLessons))
}

func (r *Router) showMyLives(ctx context.Context, chatID int64) {
	u := r.requireUser(ctx, chatID)
	if u == nil {
		return
	}
	set, err := r.repo.GetSettings(ctx)
	if err != nil {
		r.sendText(chatID, "Error reading settings.")
		return
	}
	if !set.Lives.Enabled {
		r.sendText(chatID, "Lives are not being tracked right now.")
		return
	}
	r.sendText(chatID, fmt.Sprintf("❤️ Your lives: %d/%d", u.Lives, set.Lives.MaxLives))
}

// --- small helpers ---

// parseInStudentZone parses a date entered for a student in that student's
// zone, falling back to the process default.
func (r *Router) parseInStudentZone(ctx context.Context, studentID int64, text string) (time.Time, error) {
	loc := r.loc
	if st, err := r.repo.GetUser(ctx, studentID); err == nil {
		loc = domain.UserLocation(st.TZ, r.loc)
	}
	return domain.ParseDateTime(text, loc)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
