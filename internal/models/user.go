package models

import "time"

// Role distinguishes counselor accounts from parent accounts
type Role string

const (
	RoleCounselor Role = "counselor"
	RoleParent    Role = "parent"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleCounselor || r == RoleParent
}

// User represents a counselor or parent account in the system
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsCounselor reports whether the user holds the counselor role
func (u *User) IsCounselor() bool {
	return u != nil && u.Role == RoleCounselor
}

// IsParent reports whether the user holds the parent role
func (u *User) IsParent() bool {
	return u != nil && u.Role == RoleParent
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
