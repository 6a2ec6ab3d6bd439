package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/smartlib/library-api/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDateByRole(t *testing.T) {
	c := Default()
	borrowed := date(2025, time.January, 10)
	if got := c.DueDate(model.RoleStudent, borrowed); !got.Equal(date(2025, time.January, 24)) {
		t.Fatalf("student due date: got %v", got)
	}
	if got := c.DueDate(model.RoleTeacher, borrowed); !got.Equal(date(2025, time.February, 9)) {
		t.Fatalf("teacher due date: got %v", got)
	}
	if got := c.DueDate(model.RoleStaff, borrowed); !got.Equal(date(2025, time.February, 9)) {
		t.Fatalf("staff due date: got %v", got)
	}
}

func TestCanBorrowStudentLimit(t *testing.T) {
	c := Default()
	for open := 0; open < 3; open++ {
		if !c.CanBorrow(model.RoleStudent, open) {
			t.Fatalf("student with %d open loans should be able to borrow", open)
		}
	}
	if c.CanBorrow(model.RoleStudent, 3) {
		t.Fatal("student at the cap must not borrow a 4th book")
	}
	// Teachers and staff are not capped.
	if !c.CanBorrow(model.RoleTeacher, 50) {
		t.Fatal("teacher borrowing should be unlimited")
	}
	if !c.CanBorrow(model.RoleStaff, 50) {
		t.Fatal("staff borrowing should be unlimited")
	}
}

func TestDaysLate(t *testing.T) {
	due := date(2025, time.January, 24)
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before due", date(2025, time.January, 20), 0},
		{"on due date", due, 0},
		{"one hour late", due.Add(time.Hour), 1},
		{"eight days late", date(2025, time.February, 1), 8},
		{"eight days and change", date(2025, time.February, 1).Add(5 * time.Hour), 9},
	}
	for _, tc := range cases {
		if got := DaysLate(due, tc.now); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPenaltyCents(t *testing.T) {
	c := Default()
	due := date(2025, time.January, 24)
	now := date(2025, time.February, 1)
	if got := c.PenaltyCents(due, now); got != 8*c.DailyFineCents {
		t.Fatalf("penalty: got %d, want %d", got, 8*c.DailyFineCents)
	}
	if got := c.PenaltyCents(due, due); got != 0 {
		t.Fatalf("penalty on due date: got %d, want 0", got)
	}
}

func TestEvaluateClearance(t *testing.T) {
	c := Default()
	now := date(2025, time.March, 1)

	ev := c.EvaluateClearance(now, nil, nil)
	if ev.Status != model.ClearanceCleared {
		t.Fatalf("empty state: got %s", ev.Status)
	}
	if err := ev.Blocked(); err != nil {
		t.Fatalf("cleared evaluation should not block: %v", err)
	}

	// A loan that is out but not past due keeps the user pending.
	ev = c.EvaluateClearance(now, []OpenLoan{{TransactionID: 7, DueDate: now.AddDate(0, 0, 5)}}, nil)
	if ev.Status != model.ClearancePending {
		t.Fatalf("open loan: got %s", ev.Status)
	}

	// Overdue within grace is still pending; past grace blocks.
	ev = c.EvaluateClearance(now, []OpenLoan{{TransactionID: 7, DueDate: now.AddDate(0, 0, -c.GraceDays)}}, nil)
	if ev.Status != model.ClearancePending {
		t.Fatalf("overdue within grace: got %s", ev.Status)
	}
	ev = c.EvaluateClearance(now, []OpenLoan{{TransactionID: 7, DueDate: now.AddDate(0, 0, -c.GraceDays-1)}}, nil)
	if ev.Status != model.ClearanceBlocked {
		t.Fatalf("overdue past grace: got %s", ev.Status)
	}

	// Lost loans and unpaid lost-book fines block outright.
	ev = c.EvaluateClearance(now, []OpenLoan{{TransactionID: 9, DueDate: now, Lost: true}}, nil)
	if ev.Status != model.ClearanceBlocked {
		t.Fatalf("lost loan: got %s", ev.Status)
	}
	ev = c.EvaluateClearance(now, nil, []UnpaidFine{{FineID: 3, Reason: model.FineLost}})
	if ev.Status != model.ClearanceBlocked {
		t.Fatalf("unpaid lost fine: got %s", ev.Status)
	}

	// An unpaid overdue fine alone keeps the user pending.
	ev = c.EvaluateClearance(now, nil, []UnpaidFine{{FineID: 3, Reason: model.FineOverdue}})
	if ev.Status != model.ClearancePending {
		t.Fatalf("unpaid overdue fine: got %s", ev.Status)
	}

	var blocked *ClearanceBlockedError
	err := c.EvaluateClearance(now, []OpenLoan{{TransactionID: 9, Lost: true}}, []UnpaidFine{{FineID: 3, Reason: model.FineLost}}).Blocked()
	if !errors.As(err, &blocked) {
		t.Fatalf("expected ClearanceBlockedError, got %v", err)
	}
	if len(blocked.OpenTransactionIDs) != 1 || blocked.OpenTransactionIDs[0] != 9 {
		t.Fatalf("open transaction ids: %v", blocked.OpenTransactionIDs)
	}
	if len(blocked.UnpaidFineIDs) != 1 || blocked.UnpaidFineIDs[0] != 3 {
		t.Fatalf("unpaid fine ids: %v", blocked.UnpaidFineIDs)
	}
}

func TestEvaluateClearanceDeterministic(t *testing.T) {
	c := Default()
	now := date(2025, time.March, 1)
	loans := []OpenLoan{{TransactionID: 1, DueDate: now.AddDate(0, 0, -30)}}
	fines := []UnpaidFine{{FineID: 2, Reason: model.FineOverdue}}
	first := c.EvaluateClearance(now, loans, fines)
	for i := 0; i < 10; i++ {
		again := c.EvaluateClearance(now, loans, fines)
		if again.Status != first.Status {
			t.Fatalf("recompute not deterministic: %s vs %s", again.Status, first.Status)
		}
	}
}

func TestKindOf(t *testing.T) {
	if k, ok := KindOf(ErrBorrowLimitExceeded); !ok || k != KindPrecondition {
		t.Fatalf("borrow limit: %v %v", k, ok)
	}
	if k, ok := KindOf(ErrFineAlreadySettled); !ok || k != KindConflict {
		t.Fatalf("fine settled: %v %v", k, ok)
	}
	if k, ok := KindOf(&ClearanceBlockedError{}); !ok || k != KindPrecondition {
		t.Fatalf("clearance blocked: %v %v", k, ok)
	}
	if _, ok := KindOf(errors.New("disk on fire")); ok {
		t.Fatal("infrastructure errors must not map to a policy kind")
	}
}
