package postgres

import (
	"context"

	"librarycat/internal/domain"
)

// AddBook inserts an available book.
func (d *DB) AddBook(ctx context.Context, title, author string) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO books (title, author, available) VALUES ($1, $2, 1) RETURNING id;",
		title, author,
	).Scan(&id)
	return id, err
}

// DeleteBook removes a book by ID.
func (d *DB) DeleteBook(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM books WHERE id = $1;", id)
	return err
}

// ListBooks returns all books in insertion order.
func (d *DB) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return d.queryBooks(ctx, "SELECT id, title, author, available FROM books ORDER BY id;")
}

// SearchBooks matches query against title or author, ignoring case.
func (d *DB) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	return d.queryBooks(ctx,
		`SELECT id, title, author, available FROM books WHERE title ILIKE $1 ESCAPE '\' OR author ILIKE $1 ESCAPE '\' ORDER BY id;`,
		containsPattern(query))
}

func (d *DB) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.Book{}
	for rows.Next() {
		var b domain.Book
		var available int
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &available); err != nil {
			return nil, err
		}
		b.Available = available != 0
		out = append(out, b)
	}
	return out, rows.Err()
}
