package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// ClearanceRepo provides access to the `clearances` table, keyed by
// (user_id, semester_id). Rows are created lazily by the first
// recompute for a user and semester.
type ClearanceRepo struct{ DB *sql.DB }

func NewClearanceRepo(db *sql.DB) *ClearanceRepo { return &ClearanceRepo{DB: db} }

const clearanceCols = "user_id, semester_id, status, notes, cleared_by, cleared_at, updated_at"

func scanClearance(s interface {
	Scan(dest ...interface{}) error
}) (model.Clearance, error) {
	var c model.Clearance
	var clearedBy sql.NullInt64
	var clearedAt sql.NullTime
	err := s.Scan(&c.UserID, &c.SemesterID, &c.Status, &c.Notes, &clearedBy, &clearedAt, &c.UpdatedAt)
	if err != nil {
		return model.Clearance{}, err
	}
	if clearedBy.Valid {
		v := uint64(clearedBy.Int64)
		c.ClearedBy = &v
	}
	if clearedAt.Valid {
		v := clearedAt.Time
		c.ClearedAt = &v
	}
	return c, nil
}

// Get fetches the clearance row for a user and semester.
func (r *ClearanceRepo) Get(ctx context.Context, userID, semesterID uint64) (model.Clearance, error) {
	return scanClearance(r.DB.QueryRowContext(ctx,
		"SELECT "+clearanceCols+" FROM clearances WHERE user_id=? AND semester_id=? LIMIT 1",
		userID, semesterID))
}

// UpsertTx writes the clearance row for (user, semester) inside the
// caller's transaction, creating it on first recompute.
func (r *ClearanceRepo) UpsertTx(ctx context.Context, tx *sql.Tx, c *model.Clearance) error {
	var clearedBy interface{}
	if c.ClearedBy != nil {
		clearedBy = *c.ClearedBy
	}
	var clearedAt interface{}
	if c.ClearedAt != nil {
		clearedAt = *c.ClearedAt
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO clearances (user_id, semester_id, status, notes, cleared_by, cleared_at)
         VALUES (?,?,?,?,?,?)
         ON DUPLICATE KEY UPDATE status=VALUES(status), notes=VALUES(notes),
             cleared_by=VALUES(cleared_by), cleared_at=VALUES(cleared_at)`,
		c.UserID, c.SemesterID, c.Status, c.Notes, clearedBy, clearedAt)
	return err
}

// ClearanceDetail is a clearance row joined with the user it gates,
// for the staff clearance dashboard.
type ClearanceDetail struct {
	UserID        uint64     `json:"user_id"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	StudentNumber *string    `json:"student_number,omitempty"`
	SemesterID    uint64     `json:"semester_id"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes"`
	ClearedBy     *uint64    `json:"cleared_by,omitempty"`
	ClearedAt     *time.Time `json:"cleared_at,omitempty"`
}

// ListBySemester returns clearance rows for a semester joined with
// user details, optionally filtered by status.
func (r *ClearanceRepo) ListBySemester(ctx context.Context, semesterID uint64, status string) ([]ClearanceDetail, error) {
	q := `SELECT c.user_id, CONCAT(u.first_name, ' ', u.last_name), u.role, u.student_number,
            c.semester_id, c.status, c.notes, c.cleared_by, c.cleared_at
     FROM clearances c
     JOIN users u ON u.id = c.user_id
     WHERE c.semester_id = ?`
	args := []interface{}{semesterID}
	if status != "" {
		q += " AND c.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY u.last_name, u.first_name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ClearanceDetail, 0)
	for rows.Next() {
		var d ClearanceDetail
		var studentNumber sql.NullString
		var clearedBy sql.NullInt64
		var clearedAt sql.NullTime
		if err := rows.Scan(&d.UserID, &d.Name, &d.Role, &studentNumber,
			&d.SemesterID, &d.Status, &d.Notes, &clearedBy, &clearedAt); err != nil {
			return nil, err
		}
		if studentNumber.Valid {
			v := studentNumber.String
			d.StudentNumber = &v
		}
		if clearedBy.Valid {
			v := uint64(clearedBy.Int64)
			d.ClearedBy = &v
		}
		if clearedAt.Valid {
			v := clearedAt.Time
			d.ClearedAt = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
