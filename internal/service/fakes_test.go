package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/smartlib/library-api/internal/model"
)

// fakeData is the shared in-memory state behind the store fakes. The
// services still open real transactions on a sqlmock database, so the
// atomicity wiring is exercised, while the rows live here.
type fakeData struct {
	users        map[uint64]model.User
	books        map[uint64]model.Book
	txns         map[uint64]model.Transaction
	fines        map[uint64]model.Fine
	reservations map[uint64]model.Reservation
	clearances   map[[2]uint64]model.Clearance
	nextID       uint64
}

func newFakeData() *fakeData {
	return &fakeData{
		users:        map[uint64]model.User{},
		books:        map[uint64]model.Book{},
		txns:         map[uint64]model.Transaction{},
		fines:        map[uint64]model.Fine{},
		reservations: map[uint64]model.Reservation{},
		clearances:   map[[2]uint64]model.Clearance{},
	}
}

func (d *fakeData) id() uint64 { d.nextID++; return d.nextID }

type fakeUsers struct{ d *fakeData }

func (s fakeUsers) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	u, ok := s.d.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

type fakeBooks struct{ d *fakeData }

func (s fakeBooks) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Book, error) {
	b, ok := s.d.books[id]
	if !ok {
		return model.Book{}, sql.ErrNoRows
	}
	return b, nil
}

func (s fakeBooks) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	b, ok := s.d.books[id]
	if !ok {
		return nil
	}
	b.Status = status
	s.d.books[id] = b
	return nil
}

type fakeTxns struct{ d *fakeData }

func (s fakeTxns) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	t.ID = s.d.id()
	s.d.txns[t.ID] = *t
	return nil
}

func (s fakeTxns) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Transaction, error) {
	t, ok := s.d.txns[id]
	if !ok {
		return model.Transaction{}, sql.ErrNoRows
	}
	return t, nil
}

func (s fakeTxns) CountOpenForUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) (int, error) {
	n := 0
	for _, t := range s.d.txns {
		if t.UserID == userID && t.SemesterID == semesterID && t.Type == model.TxnBorrow &&
			(t.Status == model.TxnActive || t.Status == model.TxnOverdue) {
			n++
		}
	}
	return n, nil
}

func (s fakeTxns) MarkCompletedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	t := s.d.txns[id]
	t.Status = model.TxnCompleted
	s.d.txns[id] = t
	return nil
}

func (s fakeTxns) MarkOverdueTx(ctx context.Context, tx *sql.Tx, id uint64, penaltyCents uint32) error {
	t := s.d.txns[id]
	t.Status = model.TxnOverdue
	t.PenaltyCents = penaltyCents
	s.d.txns[id] = t
	return nil
}

func (s fakeTxns) MarkLostTx(ctx context.Context, tx *sql.Tx, id uint64, penaltyCents uint32) error {
	t := s.d.txns[id]
	t.Status = model.TxnLostState
	t.PenaltyCents = penaltyCents
	s.d.txns[id] = t
	return nil
}

func (s fakeTxns) SetBookPricePaidTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	t := s.d.txns[id]
	t.BookPricePaid = true
	s.d.txns[id] = t
	return nil
}

func (s fakeTxns) ListPastDueTx(ctx context.Context, tx *sql.Tx, asOf time.Time) ([]model.Transaction, error) {
	out := []model.Transaction{}
	for _, t := range s.d.txns {
		if t.Type == model.TxnBorrow &&
			(t.Status == model.TxnActive || t.Status == model.TxnOverdue) &&
			t.DueDate != nil && t.DueDate.Before(asOf) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s fakeTxns) ListOpenByUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) ([]model.Transaction, error) {
	out := []model.Transaction{}
	for _, t := range s.d.txns {
		if t.UserID != userID || t.SemesterID != semesterID || t.Type != model.TxnBorrow {
			continue
		}
		open := t.Status == model.TxnActive || t.Status == model.TxnOverdue ||
			(t.Status == model.TxnLostState && !t.BookPricePaid)
		if open {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeFines struct{ d *fakeData }

func (s fakeFines) CreateTx(ctx context.Context, tx *sql.Tx, f *model.Fine) error {
	f.ID = s.d.id()
	f.Status = model.FinePending
	s.d.fines[f.ID] = *f
	return nil
}

func (s fakeFines) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Fine, error) {
	f, ok := s.d.fines[id]
	if !ok {
		return model.Fine{}, sql.ErrNoRows
	}
	return f, nil
}

func (s fakeFines) ByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uint64) (model.Fine, error) {
	ids := []uint64{}
	for id, f := range s.d.fines {
		if f.TransactionID == transactionID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return model.Fine{}, sql.ErrNoRows
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.d.fines[ids[0]], nil
}

func (s fakeFines) UpdatePendingTx(ctx context.Context, tx *sql.Tx, id uint64, amountCents uint32, reason string) error {
	f := s.d.fines[id]
	if f.Status != model.FinePending {
		return nil
	}
	f.AmountCents = amountCents
	f.Reason = reason
	s.d.fines[id] = f
	return nil
}

func (s fakeFines) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, amountPaidCents uint32, receiptRef string, settledBy uint64, paidAt time.Time) error {
	f := s.d.fines[id]
	f.Status = model.FinePaid
	f.AmountPaidCents = &amountPaidCents
	f.ReceiptRef = &receiptRef
	f.SettledBy = &settledBy
	f.PaidAt = &paidAt
	s.d.fines[id] = f
	return nil
}

func (s fakeFines) MarkWaivedTx(ctx context.Context, tx *sql.Tx, id uint64, settledBy uint64) error {
	f := s.d.fines[id]
	f.Status = model.FineWaived
	f.SettledBy = &settledBy
	s.d.fines[id] = f
	return nil
}

func (s fakeFines) ListUnpaidByUserTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) ([]model.Fine, error) {
	out := []model.Fine{}
	for _, f := range s.d.fines {
		if f.UserID != userID || f.Status != model.FinePending {
			continue
		}
		if t, ok := s.d.txns[f.TransactionID]; !ok || t.SemesterID != semesterID {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeReservations struct{ d *fakeData }

func (s fakeReservations) CreateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error {
	r.ID = s.d.id()
	r.Status = model.ReservationActive
	s.d.reservations[r.ID] = *r
	return nil
}

func (s fakeReservations) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	r, ok := s.d.reservations[id]
	if !ok {
		return model.Reservation{}, sql.ErrNoRows
	}
	return r, nil
}

func (s fakeReservations) ActiveByUserAndBookTx(ctx context.Context, tx *sql.Tx, userID, bookID uint64) (model.Reservation, error) {
	ids := []uint64{}
	for id, r := range s.d.reservations {
		if r.UserID == userID && r.BookID == bookID && r.Status == model.ReservationActive {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return model.Reservation{}, sql.ErrNoRows
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.d.reservations[ids[0]], nil
}

func (s fakeReservations) FulfillTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	r := s.d.reservations[id]
	r.Status = model.ReservationFulfilled
	s.d.reservations[id] = r
	return nil
}

func (s fakeReservations) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	r := s.d.reservations[id]
	r.Status = model.ReservationCancelled
	s.d.reservations[id] = r
	return nil
}

func (s fakeReservations) CancelOthersForBookTx(ctx context.Context, tx *sql.Tx, bookID, exceptUserID uint64) (int64, error) {
	var n int64
	for id, r := range s.d.reservations {
		if r.BookID == bookID && r.UserID != exceptUserID && r.Status == model.ReservationActive {
			r.Status = model.ReservationCancelled
			s.d.reservations[id] = r
			n++
		}
	}
	return n, nil
}

type fakeClearances struct{ d *fakeData }

func (s fakeClearances) UpsertTx(ctx context.Context, tx *sql.Tx, c *model.Clearance) error {
	s.d.clearances[[2]uint64{c.UserID, c.SemesterID}] = *c
	return nil
}

// newTestDB returns a sqlmock-backed *sql.DB. The fakes hold the
// rows; the mock only satisfies the Begin/Commit/Rollback calls the
// services make.
func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// expectTx queues the transaction lifecycle for one service call: a
// begin followed by a commit on success or a rollback on failure.
func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}
