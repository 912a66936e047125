// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateUsername is returned by UserRepository.Create when the
// username is already taken. Repositories derive it from the storage
// layer's unique constraint.
var ErrDuplicateUsername = errors.New("username already exists")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session represents an active user session.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Identity returns the identity bound to the session.
func (s *Session) Identity() *SessionIdentity {
	return &SessionIdentity{UserID: s.UserID, Username: s.Username}
}

// SessionIdentity is what a valid session token resolves to.
type SessionIdentity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// UserRepository defines the port for user persistence operations.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
