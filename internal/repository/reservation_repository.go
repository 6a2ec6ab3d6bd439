package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// ReservationRepo provides access to the `reservations` table. A
// reservation is a student's hold on an available book; borrowing the
// book resolves every active reservation on it, so the mutating
// methods all run inside the caller's transaction.
type ReservationRepo struct{ DB *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationCols = "id, user_id, book_id, semester_id, reservation_date, status, created_at, updated_at"

func scanReservation(s interface {
	Scan(dest ...interface{}) error
}) (model.Reservation, error) {
	var res model.Reservation
	err := s.Scan(&res.ID, &res.UserID, &res.BookID, &res.SemesterID,
		&res.ReservationDate, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	return res, err
}

// CreateTx inserts an active reservation inside the caller's
// transaction and populates the generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	out, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (user_id, book_id, semester_id, reservation_date, status) VALUES (?,?,?,?,?)",
		res.UserID, res.BookID, res.SemesterID, res.ReservationDate, model.ReservationActive)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.ReservationActive
	return nil
}

// GetForUpdateTx fetches a reservation with a row lock.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// ActiveByUserAndBookTx returns the user's active reservation on a
// book, if any. sql.ErrNoRows when there is none.
func (r *ReservationRepo) ActiveByUserAndBookTx(ctx context.Context, tx *sql.Tx, userID, bookID uint64) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE user_id=? AND book_id=? AND status=? LIMIT 1 FOR UPDATE",
		userID, bookID, model.ReservationActive))
}

// FulfillTx marks a reservation fulfilled; called when its owner
// borrows the reserved book.
func (r *ReservationRepo) FulfillTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE id=?", model.ReservationFulfilled, id)
	return err
}

// CancelTx marks a reservation cancelled.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE id=?", model.ReservationCancelled, id)
	return err
}

// CancelOthersForBookTx cancels every active reservation on a book
// except the given user's. Called when a book is borrowed: the book
// is no longer available, so holds by everyone else are void.
func (r *ReservationRepo) CancelOthersForBookTx(ctx context.Context, tx *sql.Tx, bookID, exceptUserID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE book_id=? AND user_id<>? AND status=?",
		model.ReservationCancelled, bookID, exceptUserID, model.ReservationActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReservationDetail is a reservation joined with its book for the
// student dashboard.
type ReservationDetail struct {
	ID         uint64    `json:"id"`
	BookID     uint64    `json:"book_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	ReservedAt time.Time `json:"reserved_at"`
	Status     string    `json:"status"`
}

// ListActiveByUser returns the user's active reservations in a
// semester with book details, newest first.
func (r *ReservationRepo) ListActiveByUser(ctx context.Context, userID, semesterID uint64) ([]ReservationDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.book_id, b.title, b.author, r.reservation_date, r.status
         FROM reservations r
         JOIN books b ON b.id = r.book_id
         WHERE r.user_id = ? AND r.semester_id = ? AND r.status = ?
         ORDER BY r.reservation_date DESC`,
		userID, semesterID, model.ReservationActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		if err := rows.Scan(&d.ID, &d.BookID, &d.Title, &d.Author, &d.ReservedAt, &d.Status); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
