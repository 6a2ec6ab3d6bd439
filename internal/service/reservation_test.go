package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/repository"
)

func newReservationService(t *testing.T) (*ReservationService, *fakeData, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	d := newFakeData()
	svc := &ReservationService{
		DB:           db,
		Books:        fakeBooks{d},
		Reservations: fakeReservations{d},
		Now:          func() time.Time { return testNow },
	}
	return svc, d, mock
}

func TestReserve(t *testing.T) {
	svc, d, mock := newReservationService(t)
	seedBook(d, 10, model.BookAvailable, 2500)

	expectTx(mock, true)
	res, err := svc.Reserve(context.Background(), 1, 10, 100)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Status != model.ReservationActive {
		t.Fatalf("status = %s, want ACTIVE", res.Status)
	}
	if !res.ReservationDate.Equal(testNow) {
		t.Fatalf("reservation date = %v, want %v", res.ReservationDate, testNow)
	}

	// One active hold per user and book.
	expectTx(mock, false)
	_, err = svc.Reserve(context.Background(), 1, 10, 100)
	if !errors.Is(err, policy.ErrAlreadyReserved) {
		t.Fatalf("duplicate err = %v, want ErrAlreadyReserved", err)
	}

	// A different user may hold the same shelf copy.
	expectTx(mock, true)
	if _, err := svc.Reserve(context.Background(), 2, 10, 100); err != nil {
		t.Fatalf("second user reserve: %v", err)
	}
}

func TestReserveUnavailableBook(t *testing.T) {
	svc, d, mock := newReservationService(t)
	seedBook(d, 10, model.BookBorrowed, 2500)

	expectTx(mock, false)
	_, err := svc.Reserve(context.Background(), 1, 10, 100)
	if !errors.Is(err, policy.ErrBookNotReservable) {
		t.Fatalf("err = %v, want ErrBookNotReservable", err)
	}
}

func TestReserveMissingBook(t *testing.T) {
	svc, _, mock := newReservationService(t)

	expectTx(mock, false)
	_, err := svc.Reserve(context.Background(), 1, 10, 100)
	if !errors.Is(err, policy.ErrBookNotFound) {
		t.Fatalf("err = %v, want ErrBookNotFound", err)
	}
}

func TestCancel(t *testing.T) {
	svc, d, mock := newReservationService(t)
	seedBook(d, 10, model.BookAvailable, 2500)

	expectTx(mock, true)
	res, err := svc.Reserve(context.Background(), 1, 10, 100)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	expectTx(mock, true)
	if err := svc.Cancel(context.Background(), res.ID, 1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if d.reservations[res.ID].Status != model.ReservationCancelled {
		t.Fatalf("status = %s, want CANCELLED", d.reservations[res.ID].Status)
	}

	// Cancelling again is a no-op.
	expectTx(mock, true)
	if err := svc.Cancel(context.Background(), res.ID, 1); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
}

func TestCancelNotOwner(t *testing.T) {
	svc, d, mock := newReservationService(t)
	seedBook(d, 10, model.BookAvailable, 2500)

	expectTx(mock, true)
	res, err := svc.Reserve(context.Background(), 1, 10, 100)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	expectTx(mock, false)
	if err := svc.Cancel(context.Background(), res.ID, 2); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// Staff bypass the ownership check with ownerID 0.
	expectTx(mock, true)
	if err := svc.Cancel(context.Background(), res.ID, 0); err != nil {
		t.Fatalf("staff cancel: %v", err)
	}
}

func TestCancelMissing(t *testing.T) {
	svc, _, mock := newReservationService(t)

	expectTx(mock, false)
	if err := svc.Cancel(context.Background(), 42, 1); !errors.Is(err, policy.ErrReservationNotFound) {
		t.Fatalf("err = %v, want ErrReservationNotFound", err)
	}
}
