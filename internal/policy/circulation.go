package policy

import (
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// Circulation bundles the tunable constants of the lending rules.
// The zero value is not usable; construct with Default and override
// from configuration.
type Circulation struct {
	DailyFineCents  uint32 // fine accrued per day a loan is late
	StudentLimit    int    // max concurrent loans per student per semester
	StudentLoanDays int    // student loan period in days
	StaffLoanDays   int    // teacher/staff loan period in days
	GraceDays       int    // days past due before clearance is blocked
}

// Default returns the standing library rules: three books per student
// per semester, 14-day student loans, 30-day teacher/staff loans.
func Default() Circulation {
	return Circulation{
		DailyFineCents:  500,
		StudentLimit:    3,
		StudentLoanDays: 14,
		StaffLoanDays:   30,
		GraceDays:       7,
	}
}

// DueDate computes when a loan taken out now by a user with the given
// role must be returned.
func (c Circulation) DueDate(role string, borrowedAt time.Time) time.Time {
	days := c.StaffLoanDays
	if role == model.RoleStudent {
		days = c.StudentLoanDays
	}
	return borrowedAt.AddDate(0, 0, days)
}

// LimitFor returns the maximum number of concurrent loans for a role,
// or 0 when the role is not limited. Only students are capped.
func (c Circulation) LimitFor(role string) int {
	if role == model.RoleStudent {
		return c.StudentLimit
	}
	return 0
}

// CanBorrow reports whether a user with the given role and current
// count of open (active or overdue) loans may take out another book.
func (c Circulation) CanBorrow(role string, openLoans int) bool {
	limit := c.LimitFor(role)
	return limit == 0 || openLoans < limit
}

// DaysLate returns the number of chargeable late days for a loan due
// at due as of now. A loan is late only once now is strictly past the
// due date; any started day counts as a full day, so the result is at
// least 1 for an overdue loan.
func DaysLate(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	late := now.Sub(due)
	days := int(late / (24 * time.Hour))
	if late%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// PenaltyCents computes the accrued overdue penalty for a loan due at
// due as of now. Zero when the loan is not yet late.
func (c Circulation) PenaltyCents(due, now time.Time) uint32 {
	return c.DailyFineCents * uint32(DaysLate(due, now))
}

// OpenLoan is the slice of ledger state the clearance gate needs about
// one outstanding borrow transaction.
type OpenLoan struct {
	TransactionID uint64
	DueDate       time.Time
	Lost          bool
}

// UnpaidFine is the slice of fine state the clearance gate needs.
type UnpaidFine struct {
	FineID uint64
	Reason string
}

// Evaluation is the outcome of a clearance recompute: the derived
// status plus the ids of whatever is still outstanding.
type Evaluation struct {
	Status             string
	OpenTransactionIDs []uint64
	UnpaidFineIDs      []uint64
}

// Blocked converts a non-cleared evaluation into the error returned by
// ProcessClearance. Calling it on a cleared evaluation returns nil.
func (ev Evaluation) Blocked() error {
	if ev.Status == model.ClearanceCleared {
		return nil
	}
	return &ClearanceBlockedError{
		OpenTransactionIDs: ev.OpenTransactionIDs,
		UnpaidFineIDs:      ev.UnpaidFineIDs,
	}
}

// EvaluateClearance derives the clearance status for one user and
// semester from their open loans and unpaid fines. The rules:
//
//   - no open loans and no unpaid fines        -> CLEARED
//   - any loan overdue past the grace window,
//     any lost loan, or any unpaid lost fine   -> BLOCKED
//   - anything else outstanding                -> PENDING
//
// The computation is pure: identical inputs always yield the same
// evaluation.
func (c Circulation) EvaluateClearance(now time.Time, loans []OpenLoan, fines []UnpaidFine) Evaluation {
	ev := Evaluation{Status: model.ClearanceCleared}
	blocked := false
	for _, l := range loans {
		ev.OpenTransactionIDs = append(ev.OpenTransactionIDs, l.TransactionID)
		if l.Lost || DaysLate(l.DueDate, now) > c.GraceDays {
			blocked = true
		}
	}
	for _, f := range fines {
		ev.UnpaidFineIDs = append(ev.UnpaidFineIDs, f.FineID)
		if f.Reason == model.FineLost {
			blocked = true
		}
	}
	switch {
	case blocked:
		ev.Status = model.ClearanceBlocked
	case len(ev.OpenTransactionIDs) > 0 || len(ev.UnpaidFineIDs) > 0:
		ev.Status = model.ClearancePending
	}
	return ev
}
