package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// TransactionRepo provides access to the `transactions` ledger. Rows
// are never deleted; loans move through status transitions driven by
// the service layer, which owns the surrounding transaction.
type TransactionRepo struct{ DB *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

const txnCols = "id, user_id, book_id, semester_id, type, transaction_date, due_date, status, penalty_cents, book_price_paid, created_at, updated_at"

func scanTxn(s interface {
	Scan(dest ...interface{}) error
}) (model.Transaction, error) {
	var t model.Transaction
	var due sql.NullTime
	err := s.Scan(&t.ID, &t.UserID, &t.BookID, &t.SemesterID, &t.Type,
		&t.TransactionDate, &due, &t.Status, &t.PenaltyCents, &t.BookPricePaid,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Transaction{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}

// CreateTx inserts a ledger row inside the caller's transaction and
// populates the generated ID. Used for borrow rows and for the paired
// return audit rows.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (user_id, book_id, semester_id, type, transaction_date, due_date, status) VALUES (?,?,?,?,?,?,?)",
		t.UserID, t.BookID, t.SemesterID, t.Type, t.TransactionDate, t.DueDate, t.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetForUpdateTx fetches a ledger row with a row lock so return and
// lost-marking cannot race each other or a concurrent fine sweep.
func (r *TransactionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Transaction, error) {
	return scanTxn(tx.QueryRowContext(ctx,
		"SELECT "+txnCols+" FROM transactions WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// CountOpenForUserTx counts a user's open loans (ACTIVE or OVERDUE
// borrow rows) in a semester. Borrow-limit checks run on this count
// inside the borrow transaction.
func (r *TransactionRepo) CountOpenForUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id=? AND semester_id=? AND type=? AND status IN (?,?)",
		userID, semesterID, model.TxnBorrow, model.TxnActive, model.TxnOverdue).Scan(&n)
	return n, err
}

// MarkCompletedTx closes a loan.
func (r *TransactionRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE transactions SET status=? WHERE id=?", model.TxnCompleted, id)
	return err
}

// MarkOverdueTx moves a loan to OVERDUE and records the accrued
// penalty. Also used to refresh the penalty on an already-overdue
// loan.
func (r *TransactionRepo) MarkOverdueTx(ctx context.Context, tx *sql.Tx, id uint64, penaltyCents uint32) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE transactions SET status=?, penalty_cents=? WHERE id=?",
		model.TxnOverdue, penaltyCents, id)
	return err
}

// MarkLostTx moves a loan to LOST and records the replacement price
// as its penalty.
func (r *TransactionRepo) MarkLostTx(ctx context.Context, tx *sql.Tx, id uint64, penaltyCents uint32) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE transactions SET status=?, penalty_cents=? WHERE id=?",
		model.TxnLostState, penaltyCents, id)
	return err
}

// SetBookPricePaidTx flags a lost loan as settled once the
// replacement-price fine is paid.
func (r *TransactionRepo) SetBookPricePaidTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE transactions SET book_price_paid=1 WHERE id=?", id)
	return err
}

// ListPastDueTx returns borrow rows that are past due as of asOf and
// still out (ACTIVE, or OVERDUE rows whose penalty must be refreshed).
// The rows are locked for the duration of the sweep transaction.
func (r *TransactionRepo) ListPastDueTx(ctx context.Context, tx *sql.Tx, asOf time.Time) ([]model.Transaction, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+txnCols+" FROM transactions WHERE type=? AND status IN (?,?) AND due_date < ? ORDER BY id FOR UPDATE",
		model.TxnBorrow, model.TxnActive, model.TxnOverdue, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListOpenByUserTx returns a user's open loans (ACTIVE/OVERDUE, plus
// LOST rows whose price is unsettled) in a semester. The clearance
// gate derives its status from these rows.
func (r *TransactionRepo) ListOpenByUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) ([]model.Transaction, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+txnCols+" FROM transactions WHERE user_id=? AND semester_id=? AND type=? AND (status IN (?,?) OR (status=? AND book_price_paid=0)) ORDER BY id",
		userID, semesterID, model.TxnBorrow, model.TxnActive, model.TxnOverdue, model.TxnLostState)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoanDetail is a ledger row joined with borrower and book info for
// the staff and student dashboards.
type LoanDetail struct {
	ID            uint64     `json:"id"`
	UserID        uint64     `json:"user_id"`
	BorrowerName  string     `json:"borrower_name"`
	Role          string     `json:"role"`
	StudentNumber *string    `json:"student_number,omitempty"`
	BookID        uint64     `json:"book_id"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	BorrowedAt    time.Time  `json:"borrowed_at"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Status        string     `json:"status"`
	PenaltyCents  uint32     `json:"penalty_cents"`
}

const loanDetailQuery = `SELECT t.id, t.user_id, CONCAT(u.first_name, ' ', u.last_name), u.role, u.student_number,
        t.book_id, b.title, b.author, t.transaction_date, t.due_date, t.status, t.penalty_cents
 FROM transactions t
 JOIN users u ON u.id = t.user_id
 JOIN books b ON b.id = t.book_id
 WHERE t.type = ?`

func collectLoanDetails(rows *sql.Rows) ([]LoanDetail, error) {
	defer rows.Close()
	out := make([]LoanDetail, 0)
	for rows.Next() {
		var d LoanDetail
		var studentNumber sql.NullString
		var due sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.BorrowerName, &d.Role, &studentNumber,
			&d.BookID, &d.Title, &d.Author, &d.BorrowedAt, &due, &d.Status, &d.PenaltyCents); err != nil {
			return nil, err
		}
		if studentNumber.Valid {
			sn := studentNumber.String
			d.StudentNumber = &sn
		}
		if due.Valid {
			dd := due.Time
			d.DueDate = &dd
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListOpen returns every open loan (ACTIVE/OVERDUE) in a semester,
// oldest due date first. Staff dashboard view.
func (r *TransactionRepo) ListOpen(ctx context.Context, semesterID uint64) ([]LoanDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		loanDetailQuery+" AND t.semester_id = ? AND t.status IN (?,?) ORDER BY t.due_date",
		model.TxnBorrow, semesterID, model.TxnActive, model.TxnOverdue)
	if err != nil {
		return nil, err
	}
	return collectLoanDetails(rows)
}

// ListOverdue returns the overdue loans in a semester, most overdue
// first.
func (r *TransactionRepo) ListOverdue(ctx context.Context, semesterID uint64) ([]LoanDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		loanDetailQuery+" AND t.semester_id = ? AND t.status = ? ORDER BY t.due_date",
		model.TxnBorrow, semesterID, model.TxnOverdue)
	if err != nil {
		return nil, err
	}
	return collectLoanDetails(rows)
}

// ListByUser returns a user's borrow history in a semester, newest
// first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID, semesterID uint64) ([]LoanDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		loanDetailQuery+" AND t.user_id = ? AND t.semester_id = ? ORDER BY t.transaction_date DESC",
		model.TxnBorrow, userID, semesterID)
	if err != nil {
		return nil, err
	}
	return collectLoanDetails(rows)
}
