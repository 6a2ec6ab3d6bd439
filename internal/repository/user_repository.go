package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/utils"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, email, password_hash, role, student_number, first_name, last_name, is_active, created_at, updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var studentNumber sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &studentNumber,
		&u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if studentNumber.Valid {
		sn := studentNumber.String
		u.StudentNumber = &sn
	}
	return u, nil
}

// Create inserts a user and returns its ID. The password is hashed
// with bcrypt before storage. Duplicate email and student number are
// reported as ErrEmailExists / ErrStudentNumberExists based on the
// MySQL 1062 message.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, studentNumber *string, first, last string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, student_number, first_name, last_name) VALUES (?,?,?,?,?,?)",
		email, hash, role, studentNumber, first, last)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "student_number") {
				return 0, ErrStudentNumberExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// GetTx fetches a user by id inside a transaction. Used by services
// that need the role and active flag as part of a read-check-write
// sequence.
func (r *UserRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// SetActive toggles the account's active flag. Inactive users cannot
// borrow.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=?", active, id)
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

// ListByRole returns users with the given role ordered by last name.
// When role is empty, all users are returned.
func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users"
	args := []interface{}{}
	if role != "" {
		q += " WHERE role=?"
		args = append(args, role)
	}
	q += " ORDER BY last_name, first_name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		var studentNumber sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &studentNumber,
			&u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if studentNumber.Valid {
			sn := studentNumber.String
			u.StudentNumber = &sn
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
