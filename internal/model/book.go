package model

import "time"

// Book availability states. A book moves AVAILABLE -> BORROWED on
// borrow and back on return; ARCHIVED books are out of circulation
// (withdrawn by a librarian or lost) and can be neither borrowed nor
// reserved.
const (
	BookAvailable = "AVAILABLE"
	BookBorrowed  = "BORROWED"
	BookArchived  = "ARCHIVED"
)

// Book represents a catalog record as stored in the `books` table.
// Prices are kept in cents to avoid floating point money.
//
// Fields:
//  ID         – primary key identifier.
//  Title      – book title.
//  Author     – author name.
//  ISBN       – international standard book number.
//  Category   – shelving category (e.g. "Science").
//  PriceCents – replacement price in cents; charged when lost.
//  Status     – one of the Book* constants.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Book struct {
	ID         uint64    // books.id
	Title      string    // books.title
	Author     string    // books.author
	ISBN       string    // books.isbn
	Category   string    // books.category
	PriceCents uint32    // books.price_cents
	Status     string    // books.status
	CreatedAt  time.Time // books.created_at
	UpdatedAt  time.Time // books.updated_at
}
