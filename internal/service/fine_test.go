package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
)

func newFineService(t *testing.T) (*FineService, *fakeData, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	d := newFakeData()
	svc := &FineService{
		DB:    db,
		Fines: fakeFines{d},
		Txns:  fakeTxns{d},
		Books: fakeBooks{d},
		Now:   func() time.Time { return testNow },
	}
	return svc, d, mock
}

func seedFine(d *fakeData, userID, transactionID uint64, amountCents uint32, reason string) uint64 {
	id := d.id()
	d.fines[id] = model.Fine{
		ID: id, UserID: userID, TransactionID: transactionID,
		AmountCents: amountCents, Reason: reason, Status: model.FinePending,
	}
	return id
}

func TestPayFine(t *testing.T) {
	svc, d, mock := newFineService(t)
	fineID := seedFine(d, 1, 7, 4000, model.FineOverdue)

	expectTx(mock, true)
	fine, err := svc.PayFine(context.Background(), fineID, 4000, 9)
	if err != nil {
		t.Fatalf("PayFine: %v", err)
	}
	if fine.Status != model.FinePaid {
		t.Fatalf("status = %s, want PAID", fine.Status)
	}
	if fine.ReceiptRef == nil || *fine.ReceiptRef == "" {
		t.Fatal("no receipt reference on paid fine")
	}
	if fine.AmountPaidCents == nil || *fine.AmountPaidCents != 4000 {
		t.Fatalf("amount paid = %v, want 4000", fine.AmountPaidCents)
	}
	if fine.SettledBy == nil || *fine.SettledBy != 9 {
		t.Fatalf("settled by = %v, want 9", fine.SettledBy)
	}
	if fine.PaidAt == nil || !fine.PaidAt.Equal(testNow) {
		t.Fatalf("paid at = %v, want %v", fine.PaidAt, testNow)
	}

	// A fine settles exactly once.
	expectTx(mock, false)
	_, err = svc.PayFine(context.Background(), fineID, 4000, 9)
	if !errors.Is(err, policy.ErrFineAlreadySettled) {
		t.Fatalf("double pay err = %v, want ErrFineAlreadySettled", err)
	}
}

func TestPayFineAmountMismatch(t *testing.T) {
	svc, d, mock := newFineService(t)
	fineID := seedFine(d, 1, 7, 4000, model.FineOverdue)

	expectTx(mock, false)
	_, err := svc.PayFine(context.Background(), fineID, 3999, 9)
	if !errors.Is(err, policy.ErrPaymentMismatch) {
		t.Fatalf("err = %v, want ErrPaymentMismatch", err)
	}
	if d.fines[fineID].Status != model.FinePending {
		t.Fatalf("fine status = %s after rejected payment, want PENDING", d.fines[fineID].Status)
	}
}

func TestPayFineZeroAmount(t *testing.T) {
	svc, d, _ := newFineService(t)
	fineID := seedFine(d, 1, 7, 4000, model.FineOverdue)

	// Rejected before any transaction is opened.
	_, err := svc.PayFine(context.Background(), fineID, 0, 9)
	if !errors.Is(err, policy.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestPayFineNotFound(t *testing.T) {
	svc, _, mock := newFineService(t)

	expectTx(mock, false)
	_, err := svc.PayFine(context.Background(), 42, 100, 9)
	if !errors.Is(err, policy.ErrFineNotFound) {
		t.Fatalf("err = %v, want ErrFineNotFound", err)
	}
}

func TestPayLostFineSettlesBookPrice(t *testing.T) {
	svc, d, mock := newFineService(t)
	bookID := d.id()
	d.books[bookID] = model.Book{
		ID: bookID, Title: "Moby Dick", Author: "Melville",
		PriceCents: 2500, Status: model.BookArchived,
	}
	loanID := d.id()
	d.txns[loanID] = model.Transaction{
		ID: loanID, UserID: 1, BookID: bookID, SemesterID: 100,
		Type: model.TxnBorrow, Status: model.TxnLostState, PenaltyCents: 2500,
	}
	fineID := seedFine(d, 1, loanID, 2500, model.FineLost)

	expectTx(mock, true)
	if _, err := svc.PayFine(context.Background(), fineID, 2500, 9); err != nil {
		t.Fatalf("PayFine: %v", err)
	}
	if !d.txns[loanID].BookPricePaid {
		t.Fatal("book price not marked paid on lost transaction")
	}
	// The replacement price covered a new copy; the book is back in
	// circulation.
	if d.books[bookID].Status != model.BookAvailable {
		t.Fatalf("book status = %s after paying lost fine, want AVAILABLE", d.books[bookID].Status)
	}
}

func TestWaiveFine(t *testing.T) {
	svc, d, mock := newFineService(t)
	loanID := d.id()
	d.txns[loanID] = model.Transaction{
		ID: loanID, UserID: 1, BookID: 10, SemesterID: 100,
		Type: model.TxnBorrow, Status: model.TxnLostState, PenaltyCents: 2500,
	}
	fineID := seedFine(d, 1, loanID, 2500, model.FineLost)

	expectTx(mock, true)
	fine, err := svc.WaiveFine(context.Background(), fineID, 9)
	if err != nil {
		t.Fatalf("WaiveFine: %v", err)
	}
	if fine.Status != model.FineWaived {
		t.Fatalf("status = %s, want WAIVED", fine.Status)
	}
	if fine.SettledBy == nil || *fine.SettledBy != 9 {
		t.Fatalf("settled by = %v, want 9", fine.SettledBy)
	}
	// The book is written off, not paid for.
	if d.txns[loanID].BookPricePaid {
		t.Fatal("waive must not settle the book price")
	}

	expectTx(mock, false)
	if _, err := svc.WaiveFine(context.Background(), fineID, 9); !errors.Is(err, policy.ErrFineAlreadySettled) {
		t.Fatalf("double waive err = %v, want ErrFineAlreadySettled", err)
	}
}
