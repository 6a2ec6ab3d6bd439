// Package queue defines the message payloads exchanged over the
// broker plus the publisher and the background consumer.
package queue

// FineAssessedEvent is published whenever the rules core raises or
// escalates a fine: the overdue sweep charging daily late fees, or a
// book being declared lost and billed at its replacement price. It
// carries enough information for downstream consumers to log or
// notify without querying the primary database.
type FineAssessedEvent struct {
	FineID        uint64 `json:"fine_id"`
	TransactionID uint64 `json:"transaction_id"`
	UserID        uint64 `json:"user_id"`
	BookID        uint64 `json:"book_id"`
	BookTitle     string `json:"book_title,omitempty"`
	Reason        string `json:"reason"`
	AmountCents   uint32 `json:"amount_cents"`
	DaysLate      int    `json:"days_late,omitempty"`
	AssessedAt    string `json:"assessed_at"`
}
