package domain

import "time"

// Role of a bot user. One tutor per deployment, any number of students.
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

// User is a registered chat participant.
type User struct {
	ID            int64
	ChatID        int64 // Telegram chat identity
	Username      string
	FullName      string
	Role          Role
	TZ            string // IANA name; empty means the process-wide default
	Lives         int
	LastLifeReset time.Time // UTC
	CreatedAt     time.Time // UTC
}

func (u *User) IsTutor() bool { return u.Role == RoleTutor }

// DisplayName prefers the full name, falling back to @username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "student"
}
