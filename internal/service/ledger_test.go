package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/queue"
)

var testNow = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) (*LedgerService, *fakeData, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	d := newFakeData()
	svc := &LedgerService{
		DB:           db,
		Books:        fakeBooks{d},
		Users:        fakeUsers{d},
		Txns:         fakeTxns{d},
		Reservations: fakeReservations{d},
		Fines:        fakeFines{d},
		Rules:        policy.Default(),
		Now:          func() time.Time { return testNow },
	}
	return svc, d, mock
}

func seedStudent(d *fakeData, id uint64) {
	num := "S-1001"
	d.users[id] = model.User{ID: id, Role: model.RoleStudent, StudentNumber: &num, IsActive: true}
}

func seedBook(d *fakeData, id uint64, status string, priceCents uint32) {
	d.books[id] = model.Book{ID: id, Title: "Intro to Algorithms", Status: status, PriceCents: priceCents}
}

func seedLoan(d *fakeData, userID, bookID, semesterID uint64, status string, due time.Time) uint64 {
	id := d.id()
	d.txns[id] = model.Transaction{
		ID: id, UserID: userID, BookID: bookID, SemesterID: semesterID,
		Type: model.TxnBorrow, Status: status, DueDate: &due,
	}
	return id
}

func TestBorrowBook(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookAvailable, 2500)

	// Holds on the book: one by the borrower, one by someone else.
	own := d.id()
	d.reservations[own] = model.Reservation{ID: own, UserID: 1, BookID: 10, Status: model.ReservationActive}
	other := d.id()
	d.reservations[other] = model.Reservation{ID: other, UserID: 2, BookID: 10, Status: model.ReservationActive}

	expectTx(mock, true)
	txn, err := svc.BorrowBook(context.Background(), 1, 10, 100)
	if err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}
	if txn.Status != model.TxnActive || txn.Type != model.TxnBorrow {
		t.Fatalf("got status=%s type=%s", txn.Status, txn.Type)
	}
	wantDue := testNow.AddDate(0, 0, 14)
	if txn.DueDate == nil || !txn.DueDate.Equal(wantDue) {
		t.Fatalf("due date = %v, want %v", txn.DueDate, wantDue)
	}
	if d.books[10].Status != model.BookBorrowed {
		t.Fatalf("book status = %s, want BORROWED", d.books[10].Status)
	}
	if d.reservations[own].Status != model.ReservationFulfilled {
		t.Fatalf("own reservation = %s, want FULFILLED", d.reservations[own].Status)
	}
	if d.reservations[other].Status != model.ReservationCancelled {
		t.Fatalf("other reservation = %s, want CANCELLED", d.reservations[other].Status)
	}
}

func TestBorrowBookTeacherDueDate(t *testing.T) {
	svc, d, mock := newLedger(t)
	d.users[2] = model.User{ID: 2, Role: model.RoleTeacher, IsActive: true}
	seedBook(d, 10, model.BookAvailable, 2500)

	expectTx(mock, true)
	txn, err := svc.BorrowBook(context.Background(), 2, 10, 100)
	if err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}
	wantDue := testNow.AddDate(0, 0, 30)
	if txn.DueDate == nil || !txn.DueDate.Equal(wantDue) {
		t.Fatalf("due date = %v, want %v", txn.DueDate, wantDue)
	}
}

func TestBorrowBookStudentLimit(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	for i := uint64(0); i < 3; i++ {
		seedBook(d, 20+i, model.BookBorrowed, 1000)
		seedLoan(d, 1, 20+i, 100, model.TxnActive, testNow.AddDate(0, 0, 7))
	}
	seedBook(d, 30, model.BookAvailable, 1000)

	expectTx(mock, false)
	_, err := svc.BorrowBook(context.Background(), 1, 30, 100)
	if !errors.Is(err, policy.ErrBorrowLimitExceeded) {
		t.Fatalf("err = %v, want ErrBorrowLimitExceeded", err)
	}
	if d.books[30].Status != model.BookAvailable {
		t.Fatalf("book 30 status changed on failed borrow: %s", d.books[30].Status)
	}

	// Returning one loan frees a slot.
	expectTx(mock, true)
	if _, err := svc.ReturnBook(context.Background(), 1); err != nil {
		t.Fatalf("ReturnBook: %v", err)
	}
	expectTx(mock, true)
	if _, err := svc.BorrowBook(context.Background(), 1, 30, 100); err != nil {
		t.Fatalf("borrow after return: %v", err)
	}
}

func TestBorrowBookTeacherUnlimited(t *testing.T) {
	svc, d, mock := newLedger(t)
	d.users[2] = model.User{ID: 2, Role: model.RoleTeacher, IsActive: true}
	for i := uint64(0); i < 5; i++ {
		seedBook(d, 20+i, model.BookBorrowed, 1000)
		seedLoan(d, 2, 20+i, 100, model.TxnActive, testNow.AddDate(0, 0, 7))
	}
	seedBook(d, 30, model.BookAvailable, 1000)

	expectTx(mock, true)
	if _, err := svc.BorrowBook(context.Background(), 2, 30, 100); err != nil {
		t.Fatalf("teacher borrow with 5 open loans: %v", err)
	}
}

func TestBorrowBookUnavailable(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookBorrowed, 2500)

	expectTx(mock, false)
	_, err := svc.BorrowBook(context.Background(), 1, 10, 100)
	if !errors.Is(err, policy.ErrBookUnavailable) {
		t.Fatalf("err = %v, want ErrBookUnavailable", err)
	}
}

func TestBorrowBookInactiveUser(t *testing.T) {
	svc, d, mock := newLedger(t)
	d.users[1] = model.User{ID: 1, Role: model.RoleStudent, IsActive: false}
	seedBook(d, 10, model.BookAvailable, 2500)

	expectTx(mock, false)
	_, err := svc.BorrowBook(context.Background(), 1, 10, 100)
	if !errors.Is(err, policy.ErrUserInactive) {
		t.Fatalf("err = %v, want ErrUserInactive", err)
	}
}

func TestReturnBook(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookBorrowed, 2500)
	loanID := seedLoan(d, 1, 10, 100, model.TxnActive, testNow.AddDate(0, 0, 14))

	expectTx(mock, true)
	txn, err := svc.ReturnBook(context.Background(), loanID)
	if err != nil {
		t.Fatalf("ReturnBook: %v", err)
	}
	if txn.Status != model.TxnCompleted {
		t.Fatalf("loan status = %s, want COMPLETED", txn.Status)
	}
	if d.books[10].Status != model.BookAvailable {
		t.Fatalf("book status = %s, want AVAILABLE", d.books[10].Status)
	}
	audits := 0
	for _, tr := range d.txns {
		if tr.Type == model.TxnReturn && tr.BookID == 10 {
			audits++
		}
	}
	if audits != 1 {
		t.Fatalf("return audit rows = %d, want 1", audits)
	}

	// Second return of the same loan is a conflict.
	expectTx(mock, false)
	_, err = svc.ReturnBook(context.Background(), loanID)
	if !errors.Is(err, policy.ErrLoanNotOpen) {
		t.Fatalf("double return err = %v, want ErrLoanNotOpen", err)
	}
	if kind, ok := policy.KindOf(err); !ok || kind != policy.KindConflict {
		t.Fatalf("double return kind = %v, want conflict", kind)
	}
}

func TestReturnBookKeepsPenalty(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookBorrowed, 2500)
	loanID := seedLoan(d, 1, 10, 100, model.TxnOverdue, testNow.AddDate(0, 0, -8))
	tr := d.txns[loanID]
	tr.PenaltyCents = 4000
	d.txns[loanID] = tr
	fineID := d.id()
	d.fines[fineID] = model.Fine{
		ID: fineID, UserID: 1, TransactionID: loanID,
		AmountCents: 4000, Reason: model.FineOverdue, Status: model.FinePending,
	}

	expectTx(mock, true)
	if _, err := svc.ReturnBook(context.Background(), loanID); err != nil {
		t.Fatalf("ReturnBook: %v", err)
	}
	if f := d.fines[fineID]; f.Status != model.FinePending || f.AmountCents != 4000 {
		t.Fatalf("fine changed on return: status=%s amount=%d", f.Status, f.AmountCents)
	}
}

func TestMarkAsLost(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookBorrowed, 2500)
	loanID := seedLoan(d, 1, 10, 100, model.TxnActive, testNow.AddDate(0, 0, 14))

	var published []queue.FineAssessedEvent
	svc.Publish = func(ctx context.Context, ev queue.FineAssessedEvent) {
		published = append(published, ev)
	}

	expectTx(mock, true)
	fine, err := svc.MarkAsLost(context.Background(), loanID)
	if err != nil {
		t.Fatalf("MarkAsLost: %v", err)
	}
	if fine.Reason != model.FineLost || fine.AmountCents != 2500 {
		t.Fatalf("fine = %+v, want LOST for 2500", fine)
	}
	if tr := d.txns[loanID]; tr.Status != model.TxnLostState || tr.PenaltyCents != 2500 {
		t.Fatalf("loan = status %s penalty %d", tr.Status, tr.PenaltyCents)
	}
	if d.books[10].Status != model.BookArchived {
		t.Fatalf("book status = %s, want ARCHIVED", d.books[10].Status)
	}
	if len(published) != 1 || published[0].Reason != model.FineLost {
		t.Fatalf("published = %+v, want one LOST event", published)
	}
}

func TestMarkAsLostEscalatesOverdueFine(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookBorrowed, 2500)
	loanID := seedLoan(d, 1, 10, 100, model.TxnOverdue, testNow.AddDate(0, 0, -8))
	fineID := d.id()
	d.fines[fineID] = model.Fine{
		ID: fineID, UserID: 1, TransactionID: loanID,
		AmountCents: 4000, Reason: model.FineOverdue, Status: model.FinePending,
	}

	expectTx(mock, true)
	fine, err := svc.MarkAsLost(context.Background(), loanID)
	if err != nil {
		t.Fatalf("MarkAsLost: %v", err)
	}
	if fine.ID != fineID {
		t.Fatalf("new fine %d created instead of escalating %d", fine.ID, fineID)
	}
	if f := d.fines[fineID]; f.Reason != model.FineLost || f.AmountCents != 2500 {
		t.Fatalf("escalated fine = reason %s amount %d", f.Reason, f.AmountCents)
	}
	if n := len(d.fines); n != 1 {
		t.Fatalf("fines = %d, want 1", n)
	}
}

func TestMarkAsLostNotOpen(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookAvailable, 2500)
	loanID := seedLoan(d, 1, 10, 100, model.TxnCompleted, testNow.AddDate(0, 0, -8))

	expectTx(mock, false)
	_, err := svc.MarkAsLost(context.Background(), loanID)
	if !errors.Is(err, policy.ErrLoanNotOpen) {
		t.Fatalf("err = %v, want ErrLoanNotOpen", err)
	}
}

func TestSweepOverdue(t *testing.T) {
	svc, d, mock := newLedger(t)
	seedStudent(d, 1)
	seedBook(d, 10, model.BookBorrowed, 2500)
	due := time.Date(2025, 1, 24, 10, 0, 0, 0, time.UTC)
	loanID := seedLoan(d, 1, 10, 100, model.TxnActive, due)
	// A loan still inside its period is untouched.
	seedBook(d, 11, model.BookBorrowed, 2500)
	freshID := seedLoan(d, 1, 11, 100, model.TxnActive, testNow.AddDate(0, 0, 7))

	var published []queue.FineAssessedEvent
	svc.Publish = func(ctx context.Context, ev queue.FineAssessedEvent) {
		published = append(published, ev)
	}

	expectTx(mock, true)
	n, err := svc.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	tr := d.txns[loanID]
	if tr.Status != model.TxnOverdue {
		t.Fatalf("loan status = %s, want OVERDUE", tr.Status)
	}
	// 2025-01-24 to 2025-02-01 is 8 chargeable days at 500 cents.
	if tr.PenaltyCents != 4000 {
		t.Fatalf("penalty = %d, want 4000", tr.PenaltyCents)
	}
	if d.txns[freshID].Status != model.TxnActive {
		t.Fatalf("fresh loan touched: %s", d.txns[freshID].Status)
	}
	var fine model.Fine
	count := 0
	for _, f := range d.fines {
		if f.TransactionID == loanID {
			fine = f
			count++
		}
	}
	if count != 1 || fine.Status != model.FinePending || fine.AmountCents != 4000 {
		t.Fatalf("fines for loan = %d, fine = %+v", count, fine)
	}
	if len(published) != 1 || published[0].DaysLate != 8 {
		t.Fatalf("published = %+v, want one event with 8 days late", published)
	}

	// Rerunning refreshes rather than duplicates.
	expectTx(mock, true)
	if _, err := svc.SweepOverdue(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	count = 0
	for _, f := range d.fines {
		if f.TransactionID == loanID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("fines after rerun = %d, want 1", count)
	}
	if len(published) != 1 {
		t.Fatalf("events after rerun = %d, want 1", len(published))
	}
}
