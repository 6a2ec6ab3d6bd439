package model

import "time"

// Clearance statuses for the per-(user, semester) gate. PENDING means
// the user still has open loans or unpaid fines, CLEARED that the
// semester can roll over, BLOCKED that a loan is overdue past the
// grace window or a lost-book fine is unpaid.
const (
	ClearancePending = "PENDING"
	ClearanceCleared = "CLEARED"
	ClearanceBlocked = "BLOCKED"
)

// Clearance represents a row in the `clearances` table, keyed by
// (user_id, semester_id). It is derived-but-persisted state: the gate
// recomputes it from the ledger and fines on demand, and a staff
// override holds until the next recompute.
//
// Fields:
//  UserID     – the student or teacher being cleared.
//  SemesterID – the semester the clearance applies to.
//  Status     – one of the Clearance* constants.
//  Notes      – free-form staff notes (override reason etc.).
//  ClearedBy  – staff user who processed or overrode (nil otherwise).
//  ClearedAt  – when the status last changed by staff action.
//  UpdatedAt  – last update timestamp.
type Clearance struct {
	UserID     uint64     // clearances.user_id
	SemesterID uint64     // clearances.semester_id
	Status     string     // clearances.status
	Notes      string     // clearances.notes
	ClearedBy  *uint64    // clearances.cleared_by (nullable)
	ClearedAt  *time.Time // clearances.cleared_at (nullable)
	UpdatedAt  time.Time  // clearances.updated_at
}
