package model

import "time"

// Role names stored in users.role. Staff and librarians operate the
// circulation desk and catalog; students and teachers borrow books.
const (
	RoleStudent   = "STUDENT"
	RoleTeacher   = "TEACHER"
	RoleStaff     = "STAFF"
	RoleLibrarian = "LIBRARIAN"
)

// User represents an application user record as stored in the `users`
// table. StudentNumber is only present for accounts with the STUDENT
// role and is unique when set. The json tags are omitted because these
// structs are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Email         – unique email address.
//  PasswordHash  – bcrypt hashed password.
//  Role          – one of the Role* constants.
//  StudentNumber – school-issued student ID (nil unless role=STUDENT).
//  FirstName     – given name.
//  LastName      – family name.
//  IsActive      – whether the account may borrow; toggled by staff.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	Role          string    // users.role
	StudentNumber *string   // users.student_number (nullable)
	FirstName     string    // users.first_name
	LastName      string    // users.last_name
	IsActive      bool      // users.is_active
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (nil if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
