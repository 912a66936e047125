package sqlite

import (
	"context"

	"librarycat/internal/domain"
)

// AddBook inserts an available book.
func (d *DB) AddBook(ctx context.Context, title, author string) (int64, error) {
	res, err := d.sql.ExecContext(ctx, "INSERT INTO books (title, author, available) VALUES (?, ?, 1)", title, author)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteBook removes a book by ID.
func (d *DB) DeleteBook(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	return err
}

// ListBooks returns all books in insertion order.
func (d *DB) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return d.queryBooks(ctx, "SELECT id, title, author, available FROM books ORDER BY id")
}

// SearchBooks matches query against title or author, ignoring case
// (including non-ASCII letters) through the fold function.
func (d *DB) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	return d.queryBooks(ctx,
		`SELECT id, title, author, available FROM books
		 WHERE fold(title) LIKE fold(?1) ESCAPE '\' OR fold(author) LIKE fold(?1) ESCAPE '\'
		 ORDER BY id`,
		containsPattern(query))
}

func (d *DB) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
