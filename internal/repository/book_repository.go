package repository

import (
	"context"
	"database/sql"

	"github.com/smartlib/library-api/internal/model"
)

// BookRepo provides CRUD operations for the catalog. Status changes
// that are part of a borrow/return/lost flow go through the Tx
// methods so the check-then-write sequence stays atomic.
type BookRepo struct{ DB *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{DB: db} }

const bookCols = "id, title, author, isbn, category, price_cents, status, created_at, updated_at"

func scanBook(s interface {
	Scan(dest ...interface{}) error
}) (model.Book, error) {
	var b model.Book
	err := s.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category,
		&b.PriceCents, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Create inserts a catalog record with status AVAILABLE and populates
// the generated ID.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO books (title, author, isbn, category, price_cents, status) VALUES (?,?,?,?,?,?)",
		b.Title, b.Author, b.ISBN, b.Category, b.PriceCents, model.BookAvailable)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookAvailable
	return nil
}

// Update rewrites the descriptive fields of a book. Status is not
// touched here; it only changes via the circulation flows or Archive.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE books SET title=?, author=?, isbn=?, category=?, price_cents=? WHERE id=?",
		b.Title, b.Author, b.ISBN, b.Category, b.PriceCents, b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Archive withdraws a book from circulation. Borrowed books cannot be
// archived; doing so would orphan the open loan, so ErrConflict is
// returned instead.
func (r *BookRepo) Archive(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE books SET status=? WHERE id=? AND status=?",
		model.BookArchived, id, model.BookAvailable)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// Distinguish missing from borrowed.
	var status string
	err = r.DB.QueryRowContext(ctx, "SELECT status FROM books WHERE id=?", id).Scan(&status)
	if err != nil {
		return err
	}
	if status == model.BookArchived {
		return nil // already archived, idempotent
	}
	return ErrConflict
}

// GetByID fetches a book by id.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (model.Book, error) {
	return scanBook(r.DB.QueryRowContext(ctx,
		"SELECT "+bookCols+" FROM books WHERE id=? LIMIT 1", id))
}

// GetForUpdateTx fetches a book inside a transaction with a row lock,
// so two concurrent borrows of the same book serialize on the row.
func (r *BookRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Book, error) {
	return scanBook(tx.QueryRowContext(ctx,
		"SELECT "+bookCols+" FROM books WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// UpdateStatusTx sets a book's availability status inside the caller's
// transaction.
func (r *BookRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, "UPDATE books SET status=? WHERE id=?", status, id)
	return err
}

// List returns catalog records filtered by an optional LIKE search
// over title/author/isbn and an optional status. Results are ordered
// by title.
func (r *BookRepo) List(ctx context.Context, search, status string) ([]model.Book, error) {
	q := "SELECT " + bookCols + " FROM books WHERE 1=1"
	args := []interface{}{}
	if search != "" {
		like := "%" + search + "%"
		q += " AND (title LIKE ? OR author LIKE ? OR isbn LIKE ?)"
		args = append(args, like, like, like)
	}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY title"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
