package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"librarycat/internal/domain"
)

var (
	_ domain.UserRepository    = (*DB)(nil)
	_ domain.BookRepository    = (*DB)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

// GetByUsername retrieves a user by username. The match is case-sensitive.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.getUser(ctx, "SELECT id, username, password FROM users WHERE username = ?", username)
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return d.getUser(ctx, "SELECT id, username, password FROM users WHERE id = ?", id)
}

func (d *DB) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user; the UNIQUE constraint on username decides races.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	res, err := d.sql.ExecContext(ctx, "INSERT INTO users (username, password) VALUES (?, ?)", username, passwordHash)
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// SessionRepo implements session repository operations on DB.
// Timestamps are stored as unix seconds.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, username, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		s.Token, s.UserID, s.Username, s.ExpiresAt.Unix(), s.CreatedAt.Unix(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	var expiresAt, createdAt int64
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, username, expires_at, created_at FROM sessions WHERE token = ?",
		token,
	).Scan(&s.Token, &s.UserID, &s.Username, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
