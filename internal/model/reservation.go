package model

import "time"

// Reservation statuses. A reservation stays ACTIVE until the student
// cancels it, the same student borrows the book (FULFILLED) or anyone
// else borrows it (CANCELLED).
const (
	ReservationActive    = "ACTIVE"
	ReservationCancelled = "CANCELLED"
	ReservationFulfilled = "FULFILLED"
)

// Reservation records a student's hold on an available book. At most
// one ACTIVE reservation exists per (user, book).
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – student who placed the reservation.
//  BookID          – reserved book.
//  SemesterID      – semester the reservation is scoped to.
//  ReservationDate – when the reservation was placed.
//  Status          – one of the Reservation* constants.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64    // reservations.id
	UserID          uint64    // reservations.user_id
	BookID          uint64    // reservations.book_id
	SemesterID      uint64    // reservations.semester_id
	ReservationDate time.Time // reservations.reservation_date
	Status          string    // reservations.status
	CreatedAt       time.Time // reservations.created_at
	UpdatedAt       time.Time // reservations.updated_at
}
