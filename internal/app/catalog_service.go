package app

import (
	"context"
	"errors"
	"strings"

	"librarycat/internal/domain"
)

// ErrInvalidBook indicates a book with an empty title or author.
var ErrInvalidBook = errors.New("title and author are required")

// CatalogService encapsulates the book catalog use cases. Every method
// requires an identity in the context (see ContextWithIdentity) and fails
// with ErrUnauthenticated before touching the repository otherwise.
type CatalogService struct {
	repo domain.BookRepository
}

// NewCatalogService creates a CatalogService backed by the given repository.
func NewCatalogService(repo domain.BookRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// AddBook stores a new available book and returns its id.
func (s *CatalogService) AddBook(ctx context.Context, title, author string) (int64, error) {
	if err := requireIdentity(ctx); err != nil {
		return 0, err
	}
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" || author == "" {
		return 0, ErrInvalidBook
	}
	return s.repo.AddBook(ctx, title, author)
}

// DeleteBook removes a book. Unknown ids are not an error.
func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	if err := requireIdentity(ctx); err != nil {
		return err
	}
	return s.repo.DeleteBook(ctx, id)
}

// ListBooks returns every book in insertion order.
func (s *CatalogService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	if err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListBooks(ctx)
}

// SearchBooks returns books whose title or author contains query, ignoring
// case. An empty query matches nothing.
func (s *CatalogService) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	if err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	if query == "" {
		return []domain.Book{}, nil
	}
	return s.repo.SearchBooks(ctx, query)
}

func requireIdentity(ctx context.Context) error {
	if _, ok := IdentityFromContext(ctx); !ok {
		return ErrUnauthenticated
	}
	return nil
}
