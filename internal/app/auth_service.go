// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"librarycat/internal/domain"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUnauthenticated is returned by the access guard when no valid session is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidSignup indicates a signup request with an empty username or password.
	ErrInvalidSignup = errors.New("username and password are required")
	// ErrNotSSOAccount is returned when single sign-on names an account that
	// logs in with a password.
	ErrNotSSOAccount = errors.New("account is not managed by single sign-on")
)

// DefaultSessionTTL is how long a session lives when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// AuthService handles signup, authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	hasher   *PasswordHasher
	ttl      time.Duration
	now      func() time.Time

	// compared against when the username is unknown so both paths cost the same
	dummyHash string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithHasher sets the hasher used for new passwords.
func WithHasher(h *PasswordHasher) AuthOption {
	return func(s *AuthService) { s.hasher = h }
}

// WithSessionTTL sets the lifetime of new sessions.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher, _ = NewPasswordHasher(SchemePBKDF2)
	}
	s.dummyHash, _ = s.hasher.Hash("dummy-password")
	return s
}

// SessionTTL reports the lifetime given to new sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Signup hashes password and creates the account. A taken username yields
// domain.ErrDuplicateUsername and nothing is written.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidSignup
	}
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, username, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and creates a session. Unknown users, wrong
// passwords and unreadable hashes all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		return "", ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.StartSession(ctx, user)
}

// StartSession issues a new opaque token bound to user.
func (s *AuthService) StartSession(ctx context.Context, user *domain.User) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	err = s.sessions.Create(ctx, &domain.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Logout invalidates a session. An empty token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// CurrentSession resolves token to the identity it is bound to. Expired
// sessions and sessions whose user no longer exists are removed.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*domain.SessionIdentity, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if !s.now().Before(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionNotFound
	}

	return session.Identity(), nil
}

// RequireSession is the access guard run before every protected operation.
// Missing, unknown and expired sessions all yield ErrUnauthenticated; storage
// failures are returned wrapped.
func (s *AuthService) RequireSession(ctx context.Context, token string) (*domain.SessionIdentity, error) {
	id, err := s.CurrentSession(ctx, token)
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return nil, ErrUnauthenticated
	case err != nil:
		return nil, fmt.Errorf("require session: %w", err)
	}
	return id, nil
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
// Missing accounts are provisioned without a usable password. Accounts that
// carry a password hash belong to local signups and yield ErrNotSSOAccount.
func (s *AuthService) LoginWithUser(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", ErrInvalidCredentials
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		user, err = s.users.Create(ctx, username, "")
		if errors.Is(err, domain.ErrDuplicateUsername) {
			// lost a race with a concurrent signup or SSO login
			user, err = s.users.GetByUsername(ctx, username)
		}
		if err != nil {
			return "", fmt.Errorf("provision user: %w", err)
		}
		if user == nil {
			return "", ErrInvalidCredentials
		}
	}
	if user.PasswordHash != "" {
		return "", ErrNotSSOAccount
	}

	return s.StartSession(ctx, user)
}

// SweepExpired removes all expired sessions and reports how many were removed.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
