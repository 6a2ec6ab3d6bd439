package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
)

// ClearanceService maintains the per-(user, semester) clearance gate.
// Status is derived from the ledger and the fines on demand; a staff
// override written through Block holds until the next recompute.
type ClearanceService struct {
	DB         *sql.DB
	Txns       TransactionStore
	Fines      FineStore
	Clearances ClearanceStore
	Rules      policy.Circulation

	Now func() time.Time
}

func (s *ClearanceService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ClearanceService) evaluateTx(ctx context.Context, tx *sql.Tx, userID, semesterID uint64) (policy.Evaluation, error) {
	loans, err := s.Txns.ListOpenByUserTx(ctx, tx, userID, semesterID)
	if err != nil {
		return policy.Evaluation{}, err
	}
	fines, err := s.Fines.ListUnpaidByUserTx(ctx, tx, userID, semesterID)
	if err != nil {
		return policy.Evaluation{}, err
	}
	open := make([]policy.OpenLoan, 0, len(loans))
	for _, l := range loans {
		ol := policy.OpenLoan{TransactionID: l.ID, Lost: l.Status == model.TxnLostState}
		if l.DueDate != nil {
			ol.DueDate = *l.DueDate
		}
		open = append(open, ol)
	}
	unpaid := make([]policy.UnpaidFine, 0, len(fines))
	for _, f := range fines {
		unpaid = append(unpaid, policy.UnpaidFine{FineID: f.ID, Reason: f.Reason})
	}
	return s.Rules.EvaluateClearance(s.now(), open, unpaid), nil
}

// Recompute derives and persists the clearance status for one user
// and semester, overwriting any staff override. The evaluation is
// deterministic in the ledger and fine state.
func (s *ClearanceService) Recompute(ctx context.Context, userID, semesterID uint64) (policy.Evaluation, error) {
	var ev policy.Evaluation
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		ev, err = s.evaluateTx(ctx, tx, userID, semesterID)
		if err != nil {
			return err
		}
		return s.Clearances.UpsertTx(ctx, tx, &model.Clearance{
			UserID:     userID,
			SemesterID: semesterID,
			Status:     ev.Status,
		})
	})
	if err != nil {
		return policy.Evaluation{}, err
	}
	return ev, nil
}

// ProcessClearance grants clearance for the semester if and only if
// recomputed eligibility holds: no open loans and no unpaid fines.
// Otherwise nothing is written and a ClearanceBlockedError listing
// the outstanding transaction and fine ids is returned.
func (s *ClearanceService) ProcessClearance(ctx context.Context, userID, semesterID, approverID uint64) (model.Clearance, error) {
	var cl model.Clearance
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		ev, err := s.evaluateTx(ctx, tx, userID, semesterID)
		if err != nil {
			return err
		}
		if err := ev.Blocked(); err != nil {
			return err
		}
		now := s.now()
		cl = model.Clearance{
			UserID:     userID,
			SemesterID: semesterID,
			Status:     model.ClearanceCleared,
			ClearedBy:  &approverID,
			ClearedAt:  &now,
		}
		return s.Clearances.UpsertTx(ctx, tx, &cl)
	})
	if err != nil {
		return model.Clearance{}, err
	}
	return cl, nil
}

// Block records a staff override to BLOCKED with an explanatory note.
// The override stands until the next recompute.
func (s *ClearanceService) Block(ctx context.Context, userID, semesterID, staffID uint64, notes string) (model.Clearance, error) {
	var cl model.Clearance
	err := inTx(ctx, s.DB, func(tx *sql.Tx) error {
		now := s.now()
		cl = model.Clearance{
			UserID:     userID,
			SemesterID: semesterID,
			Status:     model.ClearanceBlocked,
			Notes:      notes,
			ClearedBy:  &staffID,
			ClearedAt:  &now,
		}
		return s.Clearances.UpsertTx(ctx, tx, &cl)
	})
	if err != nil {
		return model.Clearance{}, err
	}
	return cl, nil
}
