// Package service implements the circulation rules core: the
// transaction ledger, the fine engine, the clearance gate and the
// reservation queue. Each state-changing operation runs its whole
// read-check-write sequence inside a single database transaction, so
// the store's isolation is the only concurrency mechanism needed.
// Failures cross the package boundary as policy errors; no partial
// writes survive a failed operation.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// The store interfaces cover exactly the slice of the repository
// layer the services consume. The concrete repositories satisfy them;
// tests substitute in-memory fakes.

// BookStore accesses catalog rows inside a service transaction.
type BookStore interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Book, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
}

// UserStore looks up borrower accounts inside a service transaction.
type UserStore interface {
	GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error)
}

// TransactionStore accesses the loan ledger inside a service
// transaction.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Transaction, error)
	CountOpenForUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) (int, error)
	MarkCompletedTx(ctx context.Context, tx *sql.Tx, id uint64) error
	MarkOverdueTx(ctx context.Context, tx *sql.Tx, id uint64, penaltyCents uint32) error
	MarkLostTx(ctx context.Context, tx *sql.Tx, id uint64, penaltyCents uint32) error
	SetBookPricePaidTx(ctx context.Context, tx *sql.Tx, id uint64) error
	ListPastDueTx(ctx context.Context, tx *sql.Tx, asOf time.Time) ([]model.Transaction, error)
	ListOpenByUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) ([]model.Transaction, error)
}

// FineStore accesses fines inside a service transaction.
type FineStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, f *model.Fine) error
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Fine, error)
	ByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uint64) (model.Fine, error)
	UpdatePendingTx(ctx context.Context, tx *sql.Tx, id uint64, amountCents uint32, reason string) error
	MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, amountPaidCents uint32, receiptRef string, settledBy uint64, paidAt time.Time) error
	MarkWaivedTx(ctx context.Context, tx *sql.Tx, id uint64, settledBy uint64) error
	ListUnpaidByUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) ([]model.Fine, error)
}

// ReservationStore accesses reservations inside a service
// transaction.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error)
	ActiveByUserAndBookTx(ctx context.Context, tx *sql.Tx, userID, bookID uint64) (model.Reservation, error)
	FulfillTx(ctx context.Context, tx *sql.Tx, id uint64) error
	CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error
	CancelOthersForBookTx(ctx context.Context, tx *sql.Tx, bookID, exceptUserID uint64) (int64, error)
}

// ClearanceStore accesses clearance rows inside a service
// transaction.
type ClearanceStore interface {
	UpsertTx(ctx context.Context, tx *sql.Tx, c *model.Clearance) error
}

// inTx runs fn inside a transaction on db, rolling back on error and
// committing on success. The deferred rollback after a commit is a
// no-op.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
