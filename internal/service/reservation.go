package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/repository"
)

// ReservationService manages student holds on available books.
// Reservations are only allowed on available books: a reservation is
// a hold on the shelf copy, not a wait queue behind a borrower.
type ReservationService struct {
	DB           *sql.DB
	Books        BookStore
	Reservations ReservationStore

	Now func() time.Time
}

func (s *ReservationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Reserve places a hold for userID on an available book. At most one
// active reservation per (user, book) may exist; a second attempt
// fails with AlreadyReserved.
func (s *ReservationService) Reserve(ctx context.Context, userID, bookID, semesterID uint64) (model.Reservation, error) {
	var res model.Reservation
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		book, err := s.Books.GetForUpdateTx(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrBookNotFound
			}
			return err
		}
		if book.Status != model.BookAvailable {
			return policy.ErrBookNotReservable
		}
		_, err = s.Reservations.ActiveByUserAndBookTx(ctx, tx, userID, bookID)
		switch {
		case err == nil:
			return policy.ErrAlreadyReserved
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		res = model.Reservation{
			UserID:          userID,
			BookID:          bookID,
			SemesterID:      semesterID,
			ReservationDate: s.now(),
		}
		return s.Reservations.CreateTx(ctx, tx, &res)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// Cancel withdraws a reservation. Only the owner may cancel; staff
// pass ownerID 0 to skip the ownership check. Cancelling a
// reservation that is already cancelled or fulfilled is an idempotent
// no-op.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, ownerID uint64) error {
	return inTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := s.Reservations.GetForUpdateTx(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrReservationNotFound
			}
			return err
		}
		if ownerID != 0 && res.UserID != ownerID {
			return repository.ErrForbidden
		}
		if res.Status != model.ReservationActive {
			return nil
		}
		return s.Reservations.CancelTx(ctx, tx, res.ID)
	})
}
