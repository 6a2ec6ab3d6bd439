package handler

import (
	"time"

	"github.com/smartlib/library-api/internal/model"
)

// JSON views over the internal models. The models themselves carry no
// tags; handlers decide what crosses the API boundary (the password
// hash, for one, never does).

type bookView struct {
	ID         uint64 `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN       string `json:"isbn,omitempty"`
	Category   string `json:"category,omitempty"`
	PriceCents uint32 `json:"price_cents"`
	Status     string `json:"status"`
}

func viewBook(b model.Book) bookView {
	return bookView{
		ID: b.ID, Title: b.Title, Author: b.Author, ISBN: b.ISBN,
		Category: b.Category, PriceCents: b.PriceCents, Status: b.Status,
	}
}

func viewBooks(bs []model.Book) []bookView {
	out := make([]bookView, 0, len(bs))
	for _, b := range bs {
		out = append(out, viewBook(b))
	}
	return out
}

type userView struct {
	ID            uint64  `json:"id"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	StudentNumber *string `json:"student_number,omitempty"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	IsActive      bool    `json:"is_active"`
}

func viewUser(u model.User) userView {
	return userView{
		ID: u.ID, Email: u.Email, Role: u.Role, StudentNumber: u.StudentNumber,
		FirstName: u.FirstName, LastName: u.LastName, IsActive: u.IsActive,
	}
}

func viewUsers(us []model.User) []userView {
	out := make([]userView, 0, len(us))
	for _, u := range us {
		out = append(out, viewUser(u))
	}
	return out
}

type transactionView struct {
	ID              uint64     `json:"id"`
	UserID          uint64     `json:"user_id"`
	BookID          uint64     `json:"book_id"`
	SemesterID      uint64     `json:"semester_id"`
	Type            string     `json:"type"`
	TransactionDate time.Time  `json:"transaction_date"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Status          string     `json:"status"`
	PenaltyCents    uint32     `json:"penalty_cents"`
	BookPricePaid   bool       `json:"book_price_paid"`
}

func viewTransaction(t model.Transaction) transactionView {
	return transactionView{
		ID: t.ID, UserID: t.UserID, BookID: t.BookID, SemesterID: t.SemesterID,
		Type: t.Type, TransactionDate: t.TransactionDate, DueDate: t.DueDate,
		Status: t.Status, PenaltyCents: t.PenaltyCents, BookPricePaid: t.BookPricePaid,
	}
}

type fineView struct {
	ID              uint64     `json:"id"`
	UserID          uint64     `json:"user_id"`
	TransactionID   uint64     `json:"transaction_id"`
	AmountCents     uint32     `json:"amount_cents"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	AmountPaidCents *uint32    `json:"amount_paid_cents,omitempty"`
	ReceiptRef      *string    `json:"receipt_ref,omitempty"`
	SettledBy       *uint64    `json:"settled_by,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

func viewFine(f model.Fine) fineView {
	return fineView{
		ID: f.ID, UserID: f.UserID, TransactionID: f.TransactionID,
		AmountCents: f.AmountCents, Reason: f.Reason, Status: f.Status,
		AmountPaidCents: f.AmountPaidCents, ReceiptRef: f.ReceiptRef,
		SettledBy: f.SettledBy, PaidAt: f.PaidAt,
	}
}

type reservationView struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	BookID          uint64    `json:"book_id"`
	SemesterID      uint64    `json:"semester_id"`
	ReservationDate time.Time `json:"reservation_date"`
	Status          string    `json:"status"`
}

func viewReservation(r model.Reservation) reservationView {
	return reservationView{
		ID: r.ID, UserID: r.UserID, BookID: r.BookID, SemesterID: r.SemesterID,
		ReservationDate: r.ReservationDate, Status: r.Status,
	}
}

type clearanceView struct {
	UserID     uint64     `json:"user_id"`
	SemesterID uint64     `json:"semester_id"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	ClearedBy  *uint64    `json:"cleared_by,omitempty"`
	ClearedAt  *time.Time `json:"cleared_at,omitempty"`
}

func viewClearance(cl model.Clearance) clearanceView {
	return clearanceView{
		UserID: cl.UserID, SemesterID: cl.SemesterID, Status: cl.Status,
		Notes: cl.Notes, ClearedBy: cl.ClearedBy, ClearedAt: cl.ClearedAt,
	}
}

type semesterView struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}

func viewSemester(s model.Semester) semesterView {
	return semesterView{
		ID: s.ID, Name: s.Name, StartDate: s.StartDate,
		EndDate: s.EndDate, IsCurrent: s.IsCurrent,
	}
}

func viewSemesters(ss []model.Semester) []semesterView {
	out := make([]semesterView, 0, len(ss))
	for _, s := range ss {
		out = append(out, viewSemester(s))
	}
	return out
}
