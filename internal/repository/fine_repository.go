package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// FineRepo provides access to the `fines` table. One fine exists per
// triggering transaction; settlement is monotonic and enforced by the
// service layer inside a transaction.
type FineRepo struct{ DB *sql.DB }

func NewFineRepo(db *sql.DB) *FineRepo { return &FineRepo{DB: db} }

const fineCols = "id, user_id, transaction_id, amount_cents, reason, status, amount_paid_cents, receipt_ref, settled_by, paid_at, created_at, updated_at"

func scanFine(s interface {
	Scan(dest ...interface{}) error
}) (model.Fine, error) {
	var f model.Fine
	var amountPaid sql.NullInt64
	var receipt sql.NullString
	var settledBy sql.NullInt64
	var paidAt sql.NullTime
	err := s.Scan(&f.ID, &f.UserID, &f.TransactionID, &f.AmountCents, &f.Reason, &f.Status,
		&amountPaid, &receipt, &settledBy, &paidAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return model.Fine{}, err
	}
	if amountPaid.Valid {
		v := uint32(amountPaid.Int64)
		f.AmountPaidCents = &v
	}
	if receipt.Valid {
		v := receipt.String
		f.ReceiptRef = &v
	}
	if settledBy.Valid {
		v := uint64(settledBy.Int64)
		f.SettledBy = &v
	}
	if paidAt.Valid {
		v := paidAt.Time
		f.PaidAt = &v
	}
	return f, nil
}

// CreateTx inserts a pending fine inside the caller's transaction and
// populates the generated ID.
func (r *FineRepo) CreateTx(ctx context.Context, tx *sql.Tx, f *model.Fine) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO fines (user_id, transaction_id, amount_cents, reason, status) VALUES (?,?,?,?,?)",
		f.UserID, f.TransactionID, f.AmountCents, f.Reason, model.FinePending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	f.Status = model.FinePending
	return nil
}

// GetForUpdateTx fetches a fine with a row lock so concurrent payment
// attempts serialize and the loser sees the settled status.
func (r *FineRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Fine, error) {
	return scanFine(tx.QueryRowContext(ctx,
		"SELECT "+fineCols+" FROM fines WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// ByTransactionTx returns the fine raised for a transaction, in any
// status. sql.ErrNoRows when none has been raised yet.
func (r *FineRepo) ByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uint64) (model.Fine, error) {
	return scanFine(tx.QueryRowContext(ctx,
		"SELECT "+fineCols+" FROM fines WHERE transaction_id=? LIMIT 1", transactionID))
}

// UpdatePendingTx refreshes the amount (and reason, when an overdue
// fine escalates to a lost-book fine) of a still-pending fine.
func (r *FineRepo) UpdatePendingTx(ctx context.Context, tx *sql.Tx, id uint64, amountCents uint32, reason string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE fines SET amount_cents=?, reason=? WHERE id=? AND status=?",
		amountCents, reason, id, model.FinePending)
	return err
}

// MarkPaidTx settles a fine as paid, recording the amount handed
// over, the receipt reference and the staff member who took payment.
func (r *FineRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, amountPaidCents uint32, receiptRef string, settledBy uint64, paidAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE fines SET status=?, amount_paid_cents=?, receipt_ref=?, settled_by=?, paid_at=? WHERE id=?",
		model.FinePaid, amountPaidCents, receiptRef, settledBy, paidAt, id)
	return err
}

// MarkWaivedTx settles a fine as waived with no payment.
func (r *FineRepo) MarkWaivedTx(ctx context.Context, tx *sql.Tx, id uint64, settledBy uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE fines SET status=?, settled_by=? WHERE id=?",
		model.FineWaived, settledBy, id)
	return err
}

// ListUnpaidByUserTx returns a user's pending fines scoped to a
// semester (via the triggering transaction). Input to the clearance
// gate.
func (r *FineRepo) ListUnpaidByUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) ([]model.Fine, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+prefixedFineCols+`
         FROM fines f
         JOIN transactions t ON t.id = f.transaction_id
         WHERE f.user_id = ? AND t.semester_id = ? AND f.status = ?
         ORDER BY f.id`,
		userID, semesterID, model.FinePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Fine, 0)
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const prefixedFineCols = "f.id, f.user_id, f.transaction_id, f.amount_cents, f.reason, f.status, f.amount_paid_cents, f.receipt_ref, f.settled_by, f.paid_at, f.created_at, f.updated_at"

// FineDetail is a fine joined with the debtor and the book it relates
// to, for the staff penalty dashboard.
type FineDetail struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"user_id"`
	DebtorName  string     `json:"debtor_name"`
	BookTitle   string     `json:"book_title"`
	AmountCents uint32     `json:"amount_cents"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	ReceiptRef  *string    `json:"receipt_ref,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

const fineDetailQuery = `SELECT f.id, f.user_id, CONCAT(u.first_name, ' ', u.last_name), b.title,
        f.amount_cents, f.reason, f.status, f.receipt_ref, f.paid_at, f.created_at
 FROM fines f
 JOIN users u ON u.id = f.user_id
 JOIN transactions t ON t.id = f.transaction_id
 JOIN books b ON b.id = t.book_id`

func collectFineDetails(rows *sql.Rows) ([]FineDetail, error) {
	defer rows.Close()
	out := make([]FineDetail, 0)
	for rows.Next() {
		var d FineDetail
		var receipt sql.NullString
		var paidAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.DebtorName, &d.BookTitle,
			&d.AmountCents, &d.Reason, &d.Status, &receipt, &paidAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		if receipt.Valid {
			v := receipt.String
			d.ReceiptRef = &v
		}
		if paidAt.Valid {
			v := paidAt.Time
			d.PaidAt = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// List returns fines with debtor and book details, optionally
// filtered by status, newest first.
func (r *FineRepo) List(ctx context.Context, status string) ([]FineDetail, error) {
	q := fineDetailQuery
	args := []interface{}{}
	if status != "" {
		q += " WHERE f.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY f.created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectFineDetails(rows)
}

// ListByUser returns one user's fines with book details, newest
// first.
func (r *FineRepo) ListByUser(ctx context.Context, userID uint64) ([]FineDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		fineDetailQuery+" WHERE f.user_id = ? ORDER BY f.created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return collectFineDetails(rows)
}
