package model

import "time"

// Fine reasons and statuses. A fine is raised once per triggering
// transaction, either by the overdue sweep or when a book is marked
// lost. Status is monotonic: PENDING -> PAID or PENDING -> WAIVED.
const (
	FineOverdue = "OVERDUE"
	FineLost    = "LOST"

	FinePending = "PENDING"
	FinePaid    = "PAID"
	FineWaived  = "WAIVED"
)

// Fine represents a row in the `fines` table. Amounts are in cents.
// AmountPaidCents records what was actually handed over (always equal
// to AmountCents; partial payments are rejected) and ReceiptRef is the
// reference printed on the payment receipt.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who owes the fine.
//  TransactionID   – the overdue/lost transaction that triggered it.
//  AmountCents     – fine amount in cents (> 0).
//  Reason          – FineOverdue or FineLost.
//  Status          – FinePending, FinePaid or FineWaived.
//  AmountPaidCents – amount recorded at payment time (nil until paid).
//  ReceiptRef      – payment receipt reference (nil until paid).
//  SettledBy       – staff user who took payment or waived (nil until settled).
//  PaidAt          – when the fine was paid (nil until paid).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Fine struct {
	ID              uint64     // fines.id
	UserID          uint64     // fines.user_id
	TransactionID   uint64     // fines.transaction_id
	AmountCents     uint32     // fines.amount_cents
	Reason          string     // fines.reason
	Status          string     // fines.status
	AmountPaidCents *uint32    // fines.amount_paid_cents (nullable)
	ReceiptRef      *string    // fines.receipt_ref (nullable)
	SettledBy       *uint64    // fines.settled_by (nullable)
	PaidAt          *time.Time // fines.paid_at (nullable)
	CreatedAt       time.Time  // fines.created_at
	UpdatedAt       time.Time  // fines.updated_at
}
