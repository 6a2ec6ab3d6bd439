// Package repository implements raw-SQL data access over MySQL. Every
// repository is bound to a *sql.DB; methods with a Tx suffix run inside
// an *sql.Tx owned by the caller, who must commit or roll back. Row
// absence is reported as sql.ErrNoRows so callers can translate it
// into their own not-found errors.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as cancelling another student's
// reservation. Handlers should translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as archiving a book that is currently
// borrowed. Handlers should translate this into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create when the email is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrStudentNumberExists is returned by UserRepo.Create when the
// student number is already registered to another account.
var ErrStudentNumberExists = errors.New("student number already exists")
