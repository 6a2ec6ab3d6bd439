package repository

import (
	"context"
	"database/sql"

	"github.com/smartlib/library-api/internal/model"
)

// SemesterRepo provides access to the `semesters` table. The core
// only ever reads the current semester; creation and activation are
// librarian operations.
type SemesterRepo struct{ DB *sql.DB }

func NewSemesterRepo(db *sql.DB) *SemesterRepo { return &SemesterRepo{DB: db} }

const semesterCols = "id, name, start_date, end_date, is_current, created_at"

func scanSemester(s interface {
	Scan(dest ...interface{}) error
}) (model.Semester, error) {
	var sem model.Semester
	err := s.Scan(&sem.ID, &sem.Name, &sem.StartDate, &sem.EndDate, &sem.IsCurrent, &sem.CreatedAt)
	return sem, err
}

// Current returns the semester with is_current set. sql.ErrNoRows
// when no semester has been activated yet.
func (r *SemesterRepo) Current(ctx context.Context) (model.Semester, error) {
	return scanSemester(r.DB.QueryRowContext(ctx,
		"SELECT "+semesterCols+" FROM semesters WHERE is_current=1 LIMIT 1"))
}

// GetByID fetches a semester by id.
func (r *SemesterRepo) GetByID(ctx context.Context, id uint64) (model.Semester, error) {
	return scanSemester(r.DB.QueryRowContext(ctx,
		"SELECT "+semesterCols+" FROM semesters WHERE id=? LIMIT 1", id))
}

// Create inserts a semester (not current) and populates the ID.
func (r *SemesterRepo) Create(ctx context.Context, s *model.Semester) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO semesters (name, start_date, end_date, is_current) VALUES (?,?,?,0)",
		s.Name, s.StartDate, s.EndDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ActivateTx makes the given semester current inside the caller's
// transaction, clearing the flag on whichever semester held it. Both
// writes ride the same transaction so there is never a window with
// zero or two current semesters. sql.ErrNoRows when the id is
// unknown.
func (r *SemesterRepo) ActivateTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE semesters SET is_current=0 WHERE is_current=1"); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE semesters SET is_current=1 WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns all semesters, newest first.
func (r *SemesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+semesterCols+" FROM semesters ORDER BY start_date DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Semester, 0)
	for rows.Next() {
		s, err := scanSemester(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
