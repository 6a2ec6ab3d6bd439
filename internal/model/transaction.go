package model

import "time"

// Transaction types. A BORROW row is the loan itself; a RETURN row is
// the paired audit entry written when the loan is completed; a LOST
// type is never inserted directly (the borrow row's status moves to
// LOST instead) but is reserved in the enum for imports.
const (
	TxnBorrow = "BORROW"
	TxnReturn = "RETURN"
	TxnLost   = "LOST"
)

// Transaction statuses. ACTIVE loans past their due date are moved to
// OVERDUE by the sweep; COMPLETED marks a returned loan and LOST a
// loan whose book was declared lost.
const (
	TxnActive    = "ACTIVE"
	TxnCompleted = "COMPLETED"
	TxnOverdue   = "OVERDUE"
	TxnLostState = "LOST"
)

// Transaction represents a row in the `transactions` table. Rows are
// append-only in spirit: a borrow row is mutated only through the
// status transitions above and is never deleted.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – borrower.
//  BookID          – borrowed book.
//  SemesterID      – semester the loan is scoped to.
//  Type            – one of the Txn* type constants.
//  TransactionDate – when the event happened.
//  DueDate         – date the book is due back (borrow rows only).
//  Status          – one of the Txn* status constants.
//  PenaltyCents    – accrued penalty in cents (overdue/lost rows).
//  BookPricePaid   – whether a lost book's price has been settled.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Transaction struct {
	ID              uint64     // transactions.id
	UserID          uint64     // transactions.user_id
	BookID          uint64     // transactions.book_id
	SemesterID      uint64     // transactions.semester_id
	Type            string     // transactions.type
	TransactionDate time.Time  // transactions.transaction_date
	DueDate         *time.Time // transactions.due_date (nullable)
	Status          string     // transactions.status
	PenaltyCents    uint32     // transactions.penalty_cents
	BookPricePaid   bool       // transactions.book_price_paid
	CreatedAt       time.Time  // transactions.created_at
	UpdatedAt       time.Time  // transactions.updated_at
}
