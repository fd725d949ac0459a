package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senya-a11/HelperTutor/internal/domain"
)

// MemoryRepo is an in-memory Repo used by tests. Entities are copied on the
// way in and out so callers never share state with the tables.
type MemoryRepo struct {
	mu        sync.RWMutex
	users     map[int64]*domain.User
	homeworks map[int64]*domain.Homework
	lessons   map[int64]*domain.Lesson
	settings  *domain.Settings

	nextUserID     int64
	nextHomeworkID int64
	nextLessonID   int64
}

func OpenMemory() *MemoryRepo {
	return &MemoryRepo{
		users:     make(map[int64]*domain.User),
		homeworks: make(map[int64]*domain.Homework),
		lessons:   make(map[int64]*domain.Lesson),
	}
}

func (r *MemoryRepo) Close() error { return nil }

// --- Users ---

func (r *MemoryRepo) UpsertUser(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, existing := range r.users {
		if existing.ChatID == u.ChatID {
			existing.Username = u.Username
			existing.FullName = u.FullName
			existing.Role = u.Role
			existing.TZ = u.TZ
			u.ID = existing.ID
			u.Lives = existing.Lives
			u.LastLifeReset = existing.LastLifeReset
			u.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	r.nextUserID++
	u.ID = r.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.LastLifeReset.IsZero() {
		u.LastLifeReset = now
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) GetUserByChatID(_ context.Context, chatID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ChatID == chatID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) GetTutor(_ context.Context) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Role == domain.RoleTutor {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) ListStudents(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []domain.User
	for _, u := range r.users {
		if u.Role == domain.RoleStudent {
			res = append(res, *u)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *MemoryRepo) SetUserTZ(_ context.Context, id int64, tz string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.TZ = tz
	return nil
}

func (r *MemoryRepo) SetLives(_ context.Context, id int64, lives int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Lives = lives
	return nil
}

func (r *MemoryRepo) SetLivesReset(_ context.Context, id int64, lives int, resetAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Lives = lives
	u.LastLifeReset = resetAt.UTC()
	return nil
}

func (r *MemoryRepo) DeleteStudent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Role != domain.RoleStudent {
		return ErrNotFound
	}
	delete(r.users, id)
	for hid, hw := range r.homeworks {
		if hw.StudentID == id {
			delete(r.homeworks, hid)
		}
	}
	for lid, l := range r.lessons {
		if l.StudentID == id {
			delete(r.lessons, lid)
		}
	}
	return nil
}

// --- Homeworks ---

func (r *MemoryRepo) CreateHomework(_ context.Context, hw *domain.Homework) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextHomeworkID++
	hw.ID = r.nextHomeworkID
	if hw.CreatedAt.IsZero() {
		hw.CreatedAt = time.Now().UTC()
	}
	cp := *hw
	r.homeworks[hw.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetHomework(_ context.Context, id int64) (*domain.Homework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hw, ok := r.homeworks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *hw
	return &cp, nil
}

func (r *MemoryRepo) ListHomeworksByStudent(_ context.Context, studentID int64) ([]domain.Homework, error) {
	return r.filterHomeworks(func(hw *domain.Homework) bool { return hw.StudentID == studentID })
}

func (r *MemoryRepo) ListActiveHomeworks(_ context.Context, now time.Time) ([]domain.Homework, error) {
	return r.filterHomeworks(func(hw *domain.Homework) bool {
		return !hw.IsCompleted && hw.Deadline.After(now)
	})
}

func (r *MemoryRepo) ListLateHomeworks(_ context.Context, now time.Time) ([]domain.Homework, error) {
	return r.filterHomeworks(func(hw *domain.Homework) bool {
		return hw.IsLate(now) && !hw.LateNotified
	})
}

func (r *MemoryRepo) filterHomeworks(keep func(*domain.Homework) bool) ([]domain.Homework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []domain.Homework
	for _, hw := range r.homeworks {
		if keep(hw) {
			res = append(res, *hw)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *MemoryRepo) MarkHomeworkCompleted(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	hw, ok := r.homeworks[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	hw.IsCompleted = true
	hw.CompletedAt = &at
	return nil
}

func (r *MemoryRepo) MarkHomeworkLateNotified(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	hw, ok := r.homeworks[id]
	if !ok {
		return ErrNotFound
	}
	hw.LateNotified = true
	return nil
}

// --- Lessons ---

func (r *MemoryRepo) CreateLesson(_ context.Context, l *domain.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextLessonID++
	l.ID = r.nextLessonID
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	cp := *l
	r.lessons[l.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetLesson(_ context.Context, id int64) (*domain.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lessons[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *MemoryRepo) ListLessonsByStudent(_ context.Context, studentID int64) ([]domain.Lesson, error) {
	return r.filterLessons(func(l *domain.Lesson) bool { return l.StudentID == studentID })
}

func (r *MemoryRepo) ListUpcomingLessons(_ context.Context, now time.Time) ([]domain.Lesson, error) {
	return r.filterLessons(func(l *domain.Lesson) bool { return l.ScheduledAt.After(now) })
}

func (r *MemoryRepo) filterLessons(keep func(*domain.Lesson) bool) ([]domain.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []domain.Lesson
	for _, l := range r.lessons {
		if keep(l) {
			res = append(res, *l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *MemoryRepo) SetLessonNotify(_ context.Context, id int64, notify bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	if !ok {
		return ErrNotFound
	}
	l.NotifyStudent = notify
	return nil
}

func (r *MemoryRepo) MarkLessonMissed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	if !ok {
		return ErrNotFound
	}
	l.Missed = true
	return nil
}

// --- Settings ---

func (r *MemoryRepo) GetSettings(_ context.Context) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		defaults := domain.DefaultSettings()
		r.settings = &defaults
	}
	cp := *r.settings
	cp.HomeworkOffsets = append([]time.Duration(nil), r.settings.HomeworkOffsets...)
	cp.LessonOffsets = append([]time.Duration(nil), r.settings.LessonOffsets...)
	return &cp, nil
}

func (r *MemoryRepo) SaveSettings(_ context.Context, s *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.HomeworkOffsets = append([]time.Duration(nil), s.HomeworkOffsets...)
	cp.LessonOffsets = append([]time.Duration(nil), s.LessonOffsets...)
	r.settings = &cp
	return nil
}

func (r *MemoryRepo) Counts(_ context.Context, now time.Time) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var st Stats
	for _, u := range r.users {
		if u.Role == domain.RoleStudent {
			st.Students++
		}
	}
	for _, hw := range r.homeworks {
		if !hw.IsCompleted {
			st.OpenHomeworks++
		}
	}
	for _, l := range r.lessons {
		if l.ScheduledAt.After(now) {
			st.UpcomingLessons++
		}
	}
	return st, nil
}
