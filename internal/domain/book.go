package domain

import "context"

// Book is a single catalog record.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

// BookRepository is the port for catalog persistence.
//
// ListBooks returns books in insertion order. SearchBooks matches the query
// as a case-insensitive substring of title or author; callers handle the
// empty query.
type BookRepository interface {
	AddBook(ctx context.Context, title, author string) (int64, error)
	DeleteBook(ctx context.Context, id int64) error
	ListBooks(ctx context.Context) ([]Book, error)
	SearchBooks(ctx context.Context, query string) ([]Book, error)
}
