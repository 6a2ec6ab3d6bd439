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

func newClearanceService(t *testing.T) (*ClearanceService, *fakeData, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	d := newFakeData()
	svc := &ClearanceService{
		DB:         db,
		Txns:       fakeTxns{d},
		Fines:      fakeFines{d},
		Clearances: fakeClearances{d},
		Rules:      policy.Default(),
		Now:        func() time.Time { return testNow },
	}
	return svc, d, mock
}

func TestProcessClearanceCleared(t *testing.T) {
	svc, d, mock := newClearanceService(t)
	// A returned loan and a paid fine do not block clearance.
	loanID := seedLoan(d, 1, 10, 100, model.TxnCompleted, testNow.AddDate(0, 0, -20))
	fineID := d.id()
	paid := uint32(4000)
	d.fines[fineID] = model.Fine{
		ID: fineID, UserID: 1, TransactionID: loanID,
		AmountCents: 4000, Reason: model.FineOverdue,
		Status: model.FinePaid, AmountPaidCents: &paid,
	}

	expectTx(mock, true)
	cl, err := svc.ProcessClearance(context.Background(), 1, 100, 9)
	if err != nil {
		t.Fatalf("ProcessClearance: %v", err)
	}
	if cl.Status != model.ClearanceCleared {
		t.Fatalf("status = %s, want CLEARED", cl.Status)
	}
	if cl.ClearedBy == nil || *cl.ClearedBy != 9 {
		t.Fatalf("cleared by = %v, want 9", cl.ClearedBy)
	}
	if cl.ClearedAt == nil || !cl.ClearedAt.Equal(testNow) {
		t.Fatalf("cleared at = %v, want %v", cl.ClearedAt, testNow)
	}
	stored, ok := d.clearances[[2]uint64{1, 100}]
	if !ok || stored.Status != model.ClearanceCleared {
		t.Fatalf("stored clearance = %+v", stored)
	}
}

func TestProcessClearanceBlocked(t *testing.T) {
	svc, d, mock := newClearanceService(t)
	// An overdue loan past the grace period plus its unpaid fine.
	loanID := seedLoan(d, 1, 10, 100, model.TxnOverdue, testNow.AddDate(0, 0, -10))
	fineID := d.id()
	d.fines[fineID] = model.Fine{
		ID: fineID, UserID: 1, TransactionID: loanID,
		AmountCents: 5000, Reason: model.FineOverdue, Status: model.FinePending,
	}

	expectTx(mock, false)
	_, err := svc.ProcessClearance(context.Background(), 1, 100, 9)
	var blocked *policy.ClearanceBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want ClearanceBlockedError", err)
	}
	if len(blocked.OpenTransactionIDs) != 1 || blocked.OpenTransactionIDs[0] != loanID {
		t.Fatalf("open transactions = %v, want [%d]", blocked.OpenTransactionIDs, loanID)
	}
	if len(blocked.UnpaidFineIDs) != 1 || blocked.UnpaidFineIDs[0] != fineID {
		t.Fatalf("unpaid fines = %v, want [%d]", blocked.UnpaidFineIDs, fineID)
	}
	if _, ok := d.clearances[[2]uint64{1, 100}]; ok {
		t.Fatal("clearance row written despite block")
	}
}

func TestProcessClearancePendingLoanBlocks(t *testing.T) {
	svc, d, mock := newClearanceService(t)
	// An open loan inside its period still bars approval.
	loanID := seedLoan(d, 1, 10, 100, model.TxnActive, testNow.AddDate(0, 0, 7))

	expectTx(mock, false)
	_, err := svc.ProcessClearance(context.Background(), 1, 100, 9)
	var blocked *policy.ClearanceBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want ClearanceBlockedError", err)
	}
	if len(blocked.OpenTransactionIDs) != 1 || blocked.OpenTransactionIDs[0] != loanID {
		t.Fatalf("open transactions = %v, want [%d]", blocked.OpenTransactionIDs, loanID)
	}
}

func TestRecompute(t *testing.T) {
	svc, d, mock := newClearanceService(t)
	loanID := seedLoan(d, 1, 10, 100, model.TxnActive, testNow.AddDate(0, 0, 7))

	expectTx(mock, true)
	ev, err := svc.Recompute(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if ev.Status != model.ClearancePending {
		t.Fatalf("status = %s, want PENDING", ev.Status)
	}
	if got := d.clearances[[2]uint64{1, 100}].Status; got != model.ClearancePending {
		t.Fatalf("stored status = %s, want PENDING", got)
	}

	// The same state recomputes to the same status.
	expectTx(mock, true)
	again, err := svc.Recompute(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	if again.Status != ev.Status {
		t.Fatalf("recompute not deterministic: %s then %s", ev.Status, again.Status)
	}

	// Once the loan completes, recompute clears.
	tr := d.txns[loanID]
	tr.Status = model.TxnCompleted
	d.txns[loanID] = tr
	expectTx(mock, true)
	ev, err = svc.Recompute(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Recompute after return: %v", err)
	}
	if ev.Status != model.ClearanceCleared {
		t.Fatalf("status = %s, want CLEARED", ev.Status)
	}
}

func TestRecomputeLostFineBlocks(t *testing.T) {
	svc, d, mock := newClearanceService(t)
	loanID := seedLoan(d, 1, 10, 100, model.TxnLostState, testNow.AddDate(0, 0, -3))
	fineID := d.id()
	d.fines[fineID] = model.Fine{
		ID: fineID, UserID: 1, TransactionID: loanID,
		AmountCents: 2500, Reason: model.FineLost, Status: model.FinePending,
	}

	expectTx(mock, true)
	ev, err := svc.Recompute(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if ev.Status != model.ClearanceBlocked {
		t.Fatalf("status = %s, want BLOCKED", ev.Status)
	}
}

func TestBlockOverrideAndRecompute(t *testing.T) {
	svc, d, mock := newClearanceService(t)

	expectTx(mock, true)
	cl, err := svc.Block(context.Background(), 1, 100, 9, "damaged atlas under review")
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if cl.Status != model.ClearanceBlocked || cl.Notes == "" {
		t.Fatalf("override = %+v", cl)
	}
	if got := d.clearances[[2]uint64{1, 100}].Status; got != model.ClearanceBlocked {
		t.Fatalf("stored status = %s, want BLOCKED", got)
	}

	// The override stands only until the next recompute.
	expectTx(mock, true)
	ev, err := svc.Recompute(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if ev.Status != model.ClearanceCleared {
		t.Fatalf("status = %s, want CLEARED", ev.Status)
	}
	if got := d.clearances[[2]uint64{1, 100}].Status; got != model.ClearanceCleared {
		t.Fatalf("stored status = %s, want CLEARED", got)
	}
}
