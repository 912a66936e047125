// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"librarycat/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	books    []domain.Book
	users    []*domain.User
	sessions map[string]*domain.Session

	bookIDCounter int64
	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Close is a no-op; it lets DB stand in for the SQL-backed stores.
func (db *DB) Close() error {
	return nil
}

// Ensure interfaces are met.
var _ domain.BookRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- BookRepository ---

// AddBook appends an available book.
func (db *DB) AddBook(ctx context.Context, title, author string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.bookIDCounter++
	db.books = append(db.books, domain.Book{
		ID:        db.bookIDCounter,
		Title:     title,
		Author:    author,
		Available: true,
	})
	return db.bookIDCounter, nil
}

// DeleteBook deletes a book by ID. Unknown IDs are ignored.
func (db *DB) DeleteBook(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, b := range db.books {
		if b.ID == id {
			db.books = append(db.books[:i], db.books[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListBooks returns a copy of all books in insertion order.
func (db *DB) ListBooks(ctx context.Context) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Book, len(db.books))
	copy(result, db.books)
	return result, nil
}

// SearchBooks returns books whose title or author contains query, ignoring case.
func (db *DB) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := strings.ToLower(query)
	result := []domain.Book{}
	for _, b := range db.books {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Author), q) {
			result = append(result, b)
		}
	}
	return result, nil
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new user. The uniqueness check and the insert happen
// under the same lock.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrDuplicateUsername
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *s
	r.db.sessions[s.Token] = &cp
	return nil
}

// GetByToken retrieves a session by token. Expired sessions are dropped.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if !time.Now().Before(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	var n int64
	for k, v := range r.db.sessions {
		if !now.Before(v.ExpiresAt) {
			delete(r.db.sessions, k)
			n++
		}
	}
	return n, nil
}
