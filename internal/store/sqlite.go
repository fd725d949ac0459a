package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/senya-a11/HelperTutor/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

const userColumns = `id, chat_id, username, full_name, role, tz, lives, last_life_reset, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		lastReset int64
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.ChatID, &u.Username, &u.FullName, &role, &u.TZ, &u.Lives, &lastReset, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.LastLifeReset = time.Unix(lastReset, 0).UTC()
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// UpsertUser inserts a user by chat_id or refreshes the mutable profile
// fields. Lives and reset bookkeeping are managed by dedicated setters and
// are not touched on conflict.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.LastLifeReset.IsZero() {
		u.LastLifeReset = now
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, username, full_name, role, tz, lives, last_life_reset, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			username  = excluded.username,
			full_name = excluded.full_name,
			role      = excluded.role,
			tz        = excluded.tz`,
		u.ChatID, u.Username, u.FullName, string(u.Role), u.TZ,
		u.Lives, u.LastLifeReset.Unix(), u.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && u.ID == 0 {
		u.ID = id
	}
	if u.ID == 0 {
		existing, err := r.GetUserByChatID(ctx, u.ChatID)
		if err != nil {
			return err
		}
		u.ID = existing.ID
	}
	return nil
}

func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepo) GetUserByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE chat_id = ?`, chatID)
	return scanUser(row)
}

func (r *SQLiteRepo) GetTutor(ctx context.Context) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'tutor' LIMIT 1`)
	return scanUser(row)
}

func (r *SQLiteRepo) ListStudents(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'student' ORDER BY full_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) SetUserTZ(ctx context.Context, id int64, tz string) error {
	return r.execAffecting(ctx, `UPDATE users SET tz = ? WHERE id = ?`, tz, id)
}

func (r *SQLiteRepo) SetLives(ctx context.Context, id int64, lives int) error {
	return r.execAffecting(ctx, `UPDATE users SET lives = ? WHERE id = ?`, lives, id)
}

func (r *SQLiteRepo) SetLivesReset(ctx context.Context, id int64, lives int, resetAt time.Time) error {
	return r.execAffecting(ctx, `UPDATE users SET lives = ?, last_life_reset = ? WHERE id = ?`,
		lives, resetAt.UTC().Unix(), id)
}

// DeleteStudent removes the student row; homeworks and lessons go with it
// via ON DELETE CASCADE.
func (r *SQLiteRepo) DeleteStudent(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, `DELETE FROM users WHERE id = ? AND role = 'student'`, id)
}

// --- Homeworks ---

const homeworkColumns = `id, student_id, tutor_id, task_text, deadline, is_completed, completed_at, late_notified, created_at`

func scanHomework(row rowScanner) (*domain.Homework, error) {
	var (
		hw           domain.Homework
		deadline     int64
		completedInt int
		completedAt  sql.NullInt64
		lateInt      int
		createdAt    int64
	)
	if err := row.Scan(&hw.ID, &hw.StudentID, &hw.TutorID, &hw.TaskText, &deadline,
		&completedInt, &completedAt, &lateInt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	hw.Deadline = time.Unix(deadline, 0).UTC()
	hw.IsCompleted = completedInt != 0
	hw.CompletedAt = fromNullInt64(completedAt)
	hw.LateNotified = lateInt != 0
	hw.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &hw, nil
}

func (r *SQLiteRepo) CreateHomework(ctx context.Context, hw *domain.Homework) error {
	if hw.CreatedAt.IsZero() {
		hw.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO homeworks (student_id, tutor_id, task_text, deadline, is_completed, completed_at, late_notified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hw.StudentID, hw.TutorID, hw.TaskText, hw.Deadline.UTC().Unix(),
		boolToInt(hw.IsCompleted), toNullInt64(hw.CompletedAt), boolToInt(hw.LateNotified), hw.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}
	hw.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepo) GetHomework(ctx context.Context, id int64) (*domain.Homework, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+homeworkColumns+` FROM homeworks WHERE id = ?`, id)
	return scanHomework(row)
}

func (r *SQLiteRepo) ListHomeworksByStudent(ctx context.Context, studentID int64) ([]domain.Homework, error) {
	return r.queryHomeworks(ctx, `SELECT `+homeworkColumns+` FROM homeworks WHERE student_id = ? ORDER BY deadline`, studentID)
}

func (r *SQLiteRepo) ListActiveHomeworks(ctx context.Context, now time.Time) ([]domain.Homework, error) {
	return r.queryHomeworks(ctx, `SELECT `+homeworkColumns+` FROM homeworks
		WHERE is_completed = 0 AND deadline > ? ORDER BY deadline`, now.UTC().Unix())
}

func (r *SQLiteRepo) ListLateHomeworks(ctx context.Context, now time.Time) ([]domain.Homework, error) {
	return r.queryHomeworks(ctx, `SELECT `+homeworkColumns+` FROM homeworks
		WHERE is_completed = 0 AND late_notified = 0 AND deadline < ? ORDER BY deadline`, now.UTC().Unix())
}

func (r *SQLiteRepo) queryHomeworks(ctx context.Context, query string, args ...any) ([]domain.Homework, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Homework
	for rows.Next() {
		hw, err := scanHomework(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *hw)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) MarkHomeworkCompleted(ctx context.Context, id int64, at time.Time) error {
	return r.execAffecting(ctx, `UPDATE homeworks SET is_completed = 1, completed_at = ? WHERE id = ?`,
		at.UTC().Unix(), id)
}

func (r *SQLiteRepo) MarkHomeworkLateNotified(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, `UPDATE homeworks SET late_notified = 1 WHERE id = ?`, id)
}

// --- Lessons ---

const lessonColumns = `id, student_id, tutor_id, scheduled_at, topic, duration_min, notify_student, missed, created_at`

func scanLesson(row rowScanner) (*domain.Lesson, error) {
	var (
		l           domain.Lesson
		scheduledAt int64
		notifyInt   int
		missedInt   int
		createdAt   int64
	)
	if err := row.Scan(&l.ID, &l.StudentID, &l.TutorID, &scheduledAt, &l.Topic,
		&l.DurationMin, &notifyInt, &missedInt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.ScheduledAt = time.Unix(scheduledAt, 0).UTC()
	l.NotifyStudent = notifyInt != 0
	l.Missed = missedInt != 0
	l.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &l, nil
}

func (r *SQLiteRepo) CreateLesson(ctx context.Context, l *domain.Lesson) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO lessons (student_id, tutor_id, scheduled_at, topic, duration_min, notify_student, missed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.StudentID, l.TutorID, l.ScheduledAt.UTC().Unix(), l.Topic,
		l.DurationMin, boolToInt(l.NotifyStudent), boolToInt(l.Missed), l.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepo) GetLesson(ctx context.Context, id int64) (*domain.Lesson, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	return scanLesson(row)
}

func (r *SQLiteRepo) ListLessonsByStudent(ctx context.Context, studentID int64) ([]domain.Lesson, error) {
	return r.queryLessons(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE student_id = ? ORDER BY scheduled_at`, studentID)
}

func (r *SQLiteRepo) ListUpcomingLessons(ctx context.Context, now time.Time) ([]domain.Lesson, error) {
	return r.queryLessons(ctx, `SELECT `+lessonColumns+` FROM lessons
		WHERE scheduled_at > ? ORDER BY scheduled_at`, now.UTC().Unix())
}

func (r *SQLiteRepo) queryLessons(ctx context.Context, query string, args ...any) ([]domain.Lesson, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) SetLessonNotify(ctx context.Context, id int64, notify bool) error {
	return r.execAffecting(ctx, `UPDATE lessons SET notify_student = ? WHERE id = ?`, boolToInt(notify), id)
}

func (r *SQLiteRepo) MarkLessonMissed(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, `UPDATE lessons SET missed = 1 WHERE id = ?`, id)
}

// --- Settings ---

// GetSettings reads the single settings row, seeding it with defaults on
// first access.
func (r *SQLiteRepo) GetSettings(ctx context.Context) (*domain.Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT hw_offsets, lesson_offsets, hw_reminders_enabled, lesson_reminders_enabled,
		       late_alerts_enabled, lives_enabled, max_lives, penalty_late_homework,
		       penalty_missed_lesson, reward_early_homework, auto_reset_hours, show_lives_to_student
		FROM settings WHERE id = 1`)

	var (
		s             domain.Settings
		hwOffsets     string
		lessonOffsets string
		hwEnabled     int
		lessonEnabled int
		lateAlerts    int
		livesEnabled  int
		resetHours    int
		showLives     int
	)
	err := row.Scan(&hwOffsets, &lessonOffsets, &hwEnabled, &lessonEnabled, &lateAlerts,
		&livesEnabled, &s.Lives.MaxLives, &s.Lives.PenaltyLateHomework,
		&s.Lives.PenaltyMissedLesson, &s.Lives.RewardEarlyHomework, &resetHours, &showLives)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := domain.DefaultSettings()
		if err := r.SaveSettings(ctx, &defaults); err != nil {
			return nil, err
		}
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}

	if s.HomeworkOffsets, err = domain.ParseOffsets(hwOffsets); err != nil {
		return nil, fmt.Errorf("stored homework offsets: %w", err)
	}
	if s.LessonOffsets, err = domain.ParseOffsets(lessonOffsets); err != nil {
		return nil, fmt.Errorf("stored lesson offsets: %w", err)
	}
	s.HomeworkRemindersEnabled = hwEnabled != 0
	s.LessonRemindersEnabled = lessonEnabled != 0
	s.LateAlertsEnabled = lateAlerts != 0
	s.Lives.Enabled = livesEnabled != 0
	s.Lives.AutoResetInterval = time.Duration(resetHours) * time.Hour
	s.Lives.ShowToStudent = showLives != 0
	return &s, nil
}

func (r *SQLiteRepo) SaveSettings(ctx context.Context, s *domain.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, hw_offsets, lesson_offsets, hw_reminders_enabled, lesson_reminders_enabled,
			late_alerts_enabled, lives_enabled, max_lives, penalty_late_homework,
			penalty_missed_lesson, reward_early_homework, auto_reset_hours, show_lives_to_student)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hw_offsets               = excluded.hw_offsets,
			lesson_offsets           = excluded.lesson_offsets,
			hw_reminders_enabled     = excluded.hw_reminders_enabled,
			lesson_reminders_enabled = excluded.lesson_reminders_enabled,
			late_alerts_enabled      = excluded.late_alerts_enabled,
			lives_enabled            = excluded.lives_enabled,
			max_lives                = excluded.max_lives,
			penalty_late_homework    = excluded.penalty_late_homework,
			penalty_missed_lesson    = excluded.penalty_missed_lesson,
			reward_early_homework    = excluded.reward_early_homework,
			auto_reset_hours         = excluded.auto_reset_hours,
			show_lives_to_student    = excluded.show_lives_to_student`,
		domain.FormatOffsets(s.HomeworkOffsets), domain.FormatOffsets(s.LessonOffsets),
		boolToInt(s.HomeworkRemindersEnabled), boolToInt(s.LessonRemindersEnabled),
		boolToInt(s.LateAlertsEnabled), boolToInt(s.Lives.Enabled),
		s.Lives.MaxLives, s.Lives.PenaltyLateHomework, s.Lives.PenaltyMissedLesson,
		s.Lives.RewardEarlyHomework, int(s.Lives.AutoResetInterval/time.Hour), boolToInt(s.Lives.ShowToStudent),
	)
	return err
}

// --- Stats ---

func (r *SQLiteRepo) Counts(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	nowUnix := now.UTC().Unix()
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'student'`).Scan(&st.Students); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM homeworks WHERE is_completed = 0`).Scan(&st.OpenHomeworks); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE scheduled_at > ?`, nowUnix).Scan(&st.UpcomingLessons); err != nil {
		return st, err
	}
	return st, nil
}

// execAffecting runs an UPDATE/DELETE and maps zero affected rows to ErrNotFound.
func (r *SQLiteRepo) execAffecting(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
