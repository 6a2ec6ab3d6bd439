package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/queue"
)

// LedgerService owns the borrow/return/lost lifecycle and the overdue
// sweep. It is the single place the borrowing rules are enforced;
// handlers stay thin callers.
type LedgerService struct {
	DB           *sql.DB
	Books        BookStore
	Users        UserStore
	Txns         TransactionStore
	Reservations ReservationStore
	Fines        FineStore
	Rules        policy.Circulation

	// Publish sends a fine event after the owning transaction has
	// committed. Nil disables publishing (tests, CLI).
	Publish func(ctx context.Context, ev queue.FineAssessedEvent)

	// Now overrides the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

func (s *LedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *LedgerService) publish(ctx context.Context, events []queue.FineAssessedEvent) {
	if s.Publish == nil {
		return
	}
	for _, ev := range events {
		s.Publish(ctx, ev)
	}
}

// BorrowBook checks the borrowing preconditions and, when they hold,
// records the loan: a borrow row with the role-based due date, the
// book moved to BORROWED, the borrower's own reservation fulfilled
// and everyone else's cancelled. The whole sequence runs in one
// transaction so two concurrent borrows of the same book cannot both
// succeed.
func (s *LedgerService) BorrowBook(ctx context.Context, userID, bookID, semesterID uint64) (model.Transaction, error) {
	var txn model.Transaction
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		user, err := s.Users.GetTx(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrUserNotFound
			}
			return err
		}
		if !user.IsActive {
			return policy.ErrUserInactive
		}
		book, err := s.Books.GetForUpdateTx(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrBookNotFound
			}
			return err
		}
		if book.Status != model.BookAvailable {
			return policy.ErrBookUnavailable
		}
		if s.Rules.LimitFor(user.Role) > 0 {
			open, err := s.Txns.CountOpenForUserTx(ctx, tx, userID, semesterID)
			if err != nil {
				return err
			}
			if !s.Rules.CanBorrow(user.Role, open) {
				return policy.ErrBorrowLimitExceeded
			}
		}

		now := s.now()
		due := s.Rules.DueDate(user.Role, now)
		txn = model.Transaction{
			UserID:          userID,
			BookID:          bookID,
			SemesterID:      semesterID,
			Type:            model.TxnBorrow,
			TransactionDate: now,
			DueDate:         &due,
			Status:          model.TxnActive,
		}
		if err := s.Txns.CreateTx(ctx, tx, &txn); err != nil {
			return err
		}
		if err := s.Books.UpdateStatusTx(ctx, tx, bookID, model.BookBorrowed); err != nil {
			return err
		}

		// Resolve reservations on the book: the borrower's own hold is
		// fulfilled, anyone else's is void now the book is gone.
		res, err := s.Reservations.ActiveByUserAndBookTx(ctx, tx, userID, bookID)
		switch {
		case err == nil:
			if err := s.Reservations.FulfillTx(ctx, tx, res.ID); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		if _, err := s.Reservations.CancelOthersForBookTx(ctx, tx, bookID, userID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// ReturnBook completes an open loan: the borrow row moves to
// COMPLETED, a paired RETURN audit row is written and the book goes
// back to AVAILABLE. Any penalty already accrued stays on the
// transaction and its fine; only payment clears it. Returning a loan
// that is not open fails with a conflict, so a double return can
// never credit availability twice.
func (s *LedgerService) ReturnBook(ctx context.Context, transactionID uint64) (model.Transaction, error) {
	var txn model.Transaction
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		t, err := s.Txns.GetForUpdateTx(ctx, tx, transactionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrTransactionNotFound
			}
			return err
		}
		if t.Type != model.TxnBorrow {
			return policy.ErrTransactionNotFound
		}
		if t.Status != model.TxnActive && t.Status != model.TxnOverdue {
			return policy.ErrLoanNotOpen
		}
		if err := s.Txns.MarkCompletedTx(ctx, tx, t.ID); err != nil {
			return err
		}
		audit := model.Transaction{
			UserID:          t.UserID,
			BookID:          t.BookID,
			SemesterID:      t.SemesterID,
			Type:            model.TxnReturn,
			TransactionDate: s.now(),
			Status:          model.TxnCompleted,
		}
		if err := s.Txns.CreateTx(ctx, tx, &audit); err != nil {
			return err
		}
		if err := s.Books.UpdateStatusTx(ctx, tx, t.BookID, model.BookAvailable); err != nil {
			return err
		}
		t.Status = model.TxnCompleted
		txn = t
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// MarkAsLost declares an open loan's book lost: the loan moves to
// LOST with the book's replacement price as its penalty, the book is
// archived out of circulation, and a lost-book fine for the price is
// raised (escalating the loan's pending overdue fine if any). The fine
// stays owing until paid or waived.
func (s *LedgerService) MarkAsLost(ctx context.Context, transactionID uint64) (model.Fine, error) {
	var fine model.Fine
	var events []queue.FineAssessedEvent
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		t, err := s.Txns.GetForUpdateTx(ctx, tx, transactionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrTransactionNotFound
			}
			return err
		}
		if t.Type != model.TxnBorrow {
			return policy.ErrTransactionNotFound
		}
		if t.Status != model.TxnActive && t.Status != model.TxnOverdue {
			return policy.ErrLoanNotOpen
		}
		book, err := s.Books.GetForUpdateTx(ctx, tx, t.BookID)
		if err != nil {
			return err
		}
		if err := s.Txns.MarkLostTx(ctx, tx, t.ID, book.PriceCents); err != nil {
			return err
		}
		if err := s.Books.UpdateStatusTx(ctx, tx, t.BookID, model.BookArchived); err != nil {
			return err
		}

		existing, err := s.Fines.ByTransactionTx(ctx, tx, t.ID)
		switch {
		case err == nil && existing.Status == model.FinePending:
			// Overdue fine escalates to the replacement price.
			if err := s.Fines.UpdatePendingTx(ctx, tx, existing.ID, book.PriceCents, model.FineLost); err != nil {
				return err
			}
			existing.AmountCents = book.PriceCents
			existing.Reason = model.FineLost
			fine = existing
		case err == nil:
			// Already settled; keep the historical fine as is.
			fine = existing
			return nil
		case errors.Is(err, sql.ErrNoRows):
			fine = model.Fine{
				UserID:        t.UserID,
				TransactionID: t.ID,
				AmountCents:   book.PriceCents,
				Reason:        model.FineLost,
			}
			if err := s.Fines.CreateTx(ctx, tx, &fine); err != nil {
				return err
			}
		default:
			return err
		}
		events = append(events, queue.FineAssessedEvent{
			FineID:        fine.ID,
			TransactionID: t.ID,
			UserID:        t.UserID,
			BookID:        t.BookID,
			BookTitle:     book.Title,
			Reason:        model.FineLost,
			AmountCents:   fine.AmountCents,
			AssessedAt:    s.now().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return model.Fine{}, err
	}
	s.publish(ctx, events)
	return fine, nil
}

// SweepOverdue runs the overdue recompute: every open loan past its
// due date moves to OVERDUE with penalty = daily rate × days late,
// and exactly one pending fine per such loan is kept in step with the
// penalty. The sweep is idempotent: rerunning it refreshes amounts
// without duplicating fines, so it is safe to trigger from the staff
// dashboard or a scheduled job. It returns the number of loans
// processed.
func (s *LedgerService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now()
	var swept int
	var events []queue.FineAssessedEvent
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		due, err := s.Txns.ListPastDueTx(ctx, tx, now)
		if err != nil {
			return err
		}
		for _, t := range due {
			if t.DueDate == nil {
				log.Printf("sweep: borrow transaction %d has no due date, skipping", t.ID)
				continue
			}
			penalty := s.Rules.PenaltyCents(*t.DueDate, now)
			if err := s.Txns.MarkOverdueTx(ctx, tx, t.ID, penalty); err != nil {
				return err
			}
			existing, err := s.Fines.ByTransactionTx(ctx, tx, t.ID)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				fine := model.Fine{
					UserID:        t.UserID,
					TransactionID: t.ID,
					AmountCents:   penalty,
					Reason:        model.FineOverdue,
				}
				if err := s.Fines.CreateTx(ctx, tx, &fine); err != nil {
					return err
				}
				events = append(events, queue.FineAssessedEvent{
					FineID:        fine.ID,
					TransactionID: t.ID,
					UserID:        t.UserID,
					BookID:        t.BookID,
					Reason:        model.FineOverdue,
					AmountCents:   penalty,
					DaysLate:      policy.DaysLate(*t.DueDate, now),
					AssessedAt:    now.Format(time.RFC3339),
				})
			case err != nil:
				return err
			case existing.Status == model.FinePending && existing.AmountCents != penalty:
				if err := s.Fines.UpdatePendingTx(ctx, tx, existing.ID, penalty, existing.Reason); err != nil {
					return err
				}
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events)
	return swept, nil
}
