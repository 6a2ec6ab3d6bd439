package model

import "time"

// Semester represents a row in the `semesters` table. Borrowing counts
// and clearance state are scoped to a semester; exactly one semester
// has IsCurrent set at any time.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name (e.g. "2025/26 First Semester").
//  StartDate – first day of the semester.
//  EndDate   – last day of the semester.
//  IsCurrent – whether this is the active semester.
//  CreatedAt – creation timestamp.
type Semester struct {
	ID        uint64    // semesters.id
	Name      string    // semesters.name
	StartDate time.Time // semesters.start_date
	EndDate   time.Time // semesters.end_date
	IsCurrent bool      // semesters.is_current
	CreatedAt time.Time // semesters.created_at
}
