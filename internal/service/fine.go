package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
)

// FineService settles fines. Payment is all-or-nothing: the amount
// handed over must equal the recorded fine amount, and a fine's
// status only ever moves PENDING -> PAID or PENDING -> WAIVED.
type FineService struct {
	DB    *sql.DB
	Fines FineStore
	Txns  TransactionStore
	Books BookStore

	Now func() time.Time
}

func (s *FineService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// PayFine records full payment of a pending fine by staffID. The fine
// row is locked for the duration, so paying the same fine twice fails
// the second attempt with a conflict. Paying a lost-book fine also
// settles the replacement price on the lost transaction and puts the
// book back in circulation. Returns the settled fine with its receipt
// reference.
func (s *FineService) PayFine(ctx context.Context, fineID uint64, amountPaidCents uint32, staffID uint64) (model.Fine, error) {
	if amountPaidCents == 0 {
		return model.Fine{}, policy.ErrInvalidAmount
	}
	var fine model.Fine
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		f, err := s.Fines.GetForUpdateTx(ctx, tx, fineID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrFineNotFound
			}
			return err
		}
		if f.Status != model.FinePending {
			return policy.ErrFineAlreadySettled
		}
		if amountPaidCents != f.AmountCents {
			return policy.ErrPaymentMismatch
		}
		paidAt := s.now()
		receipt := uuid.NewString()
		if err := s.Fines.MarkPaidTx(ctx, tx, f.ID, amountPaidCents, receipt, staffID, paidAt); err != nil {
			return err
		}
		if f.Reason == model.FineLost {
			// The replacement price is settled, so the library owns a
			// new copy: the archived book returns to AVAILABLE.
			txn, err := s.Txns.GetForUpdateTx(ctx, tx, f.TransactionID)
			if err != nil {
				return err
			}
			if err := s.Txns.SetBookPricePaidTx(ctx, tx, txn.ID); err != nil {
				return err
			}
			if err := s.Books.UpdateStatusTx(ctx, tx, txn.BookID, model.BookAvailable); err != nil {
				return err
			}
		}
		f.Status = model.FinePaid
		f.AmountPaidCents = &amountPaidCents
		f.ReceiptRef = &receipt
		f.SettledBy = &staffID
		f.PaidAt = &paidAt
		fine = f
		return nil
	})
	if err != nil {
		return model.Fine{}, err
	}
	return fine, nil
}

// WaiveFine settles a pending fine without payment. Staff only; the
// caller is recorded as the settler. Waiving does not mark a lost
// book's price as paid; the book stays written off.
func (s *FineService) WaiveFine(ctx context.Context, fineID, staffID uint64) (model.Fine, error) {
	var fine model.Fine
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		f, err := s.Fines.GetForUpdateTx(ctx, tx, fineID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return policy.ErrFineNotFound
			}
			return err
		}
		if f.Status != model.FinePending {
			return policy.ErrFineAlreadySettled
		}
		if err := s.Fines.MarkWaivedTx(ctx, tx, f.ID, staffID); err != nil {
			return err
		}
		f.Status = model.FineWaived
		f.SettledBy = &staffID
		fine = f
		return nil
	})
	if err != nil {
		return model.Fine{}, err
	}
	return fine, nil
}
