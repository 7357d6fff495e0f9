package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns zero or more loaded sessions — tracking which caller owns
// which session is additive scope here, not a social backend.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// UserCredentials is a login request body.
type UserCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserSignup is a registration request body.
type UserSignup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=2"`
}

// UserSession is an issued bearer session, distinct from a
// runtime.Session (created by runtime.Manager) — this one authenticates
// the caller, that one is the loaded story.
type UserSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// UserProfile is the public-facing view of a User.
type UserProfile struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// UserUpdate carries the fields a profile update may change.
type UserUpdate struct {
	FullName string `json:"full_name,omitempty" validate:"omitempty,min=2"`
}

// AuthResponse is returned on successful login/signup.
type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

// SessionRecord is one archived row in the optional Postgres
// session-history adapter: a point-in-time snapshot plus the owning
// story, kept for replay/analytics independent of the live,
// in-memory/Redis SessionStore.
type SessionRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	StoryID   string    `json:"story_id"`
	Snapshot  string    `json:"snapshot"` // opaque saved-state JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionEvent is one archived entry of a session's event contract,
// appended for replay/analytics by internal/sessionhistory.
type SessionEvent struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Name      string      `json:"name"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}
