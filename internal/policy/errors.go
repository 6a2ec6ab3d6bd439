// Package policy holds the circulation business rules and the error
// taxonomy shared by the service layer. Operations never leak raw
// infrastructure errors across the API boundary: services translate
// sql failures and rule violations into these typed errors, and
// handlers map the kind onto an HTTP status.
package policy

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. Handlers use it to pick a
// status code; clients use the accompanying Code to branch.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition_failed"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
)

// Error is a discriminated operation failure: a machine-checkable
// kind and code plus one human-readable reason. Compare with
// errors.Is against the sentinel values below.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Sentinel errors for every business-rule failure the rules core can
// report. These are compared by identity, so services must return the
// values themselves rather than copies.
var (
	ErrUserNotFound        = &Error{KindNotFound, "UserNotFound", "user not found"}
	ErrUserInactive        = &Error{KindPrecondition, "UserInactive", "user account is inactive"}
	ErrBookNotFound        = &Error{KindNotFound, "BookNotFound", "book not found"}
	ErrBookUnavailable     = &Error{KindPrecondition, "BookUnavailable", "book is not available for borrowing"}
	ErrBorrowLimitExceeded = &Error{KindPrecondition, "BorrowLimitExceeded", "student has reached the borrowing limit for this semester"}
	ErrTransactionNotFound = &Error{KindNotFound, "TransactionNotFound", "transaction not found"}
	ErrLoanNotOpen         = &Error{KindConflict, "LoanNotOpen", "transaction is not an open loan"}
	ErrFineNotFound        = &Error{KindNotFound, "FineNotFound", "fine not found"}
	ErrFineAlreadySettled  = &Error{KindConflict, "FineAlreadySettled", "fine has already been paid or waived"}
	ErrInvalidAmount       = &Error{KindValidation, "InvalidAmount", "payment amount must be greater than zero"}
	ErrPaymentMismatch     = &Error{KindValidation, "PaymentMismatch", "payment amount does not match the fine amount"}
	ErrAlreadyReserved     = &Error{KindConflict, "AlreadyReserved", "an active reservation for this book already exists"}
	ErrBookNotReservable   = &Error{KindPrecondition, "BookNotAvailable", "only available books can be reserved"}
	ErrReservationNotFound = &Error{KindNotFound, "ReservationNotFound", "reservation not found"}
	ErrNoCurrentSemester   = &Error{KindPrecondition, "NoCurrentSemester", "no semester is currently active"}
)

// ClearanceBlockedError reports why a clearance could not be granted:
// the ids of loans still out and fines still unpaid.
type ClearanceBlockedError struct {
	OpenTransactionIDs []uint64
	UnpaidFineIDs      []uint64
}

func (e *ClearanceBlockedError) Error() string {
	return fmt.Sprintf("clearance blocked: %d open loans, %d unpaid fines",
		len(e.OpenTransactionIDs), len(e.UnpaidFineIDs))
}

// KindOf extracts the failure kind from an error chain. The second
// return is false when the error is not a policy error, meaning the
// caller is looking at an infrastructure failure.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	var cb *ClearanceBlockedError
	if errors.As(err, &cb) {
		return KindPrecondition, true
	}
	return "", false
}
