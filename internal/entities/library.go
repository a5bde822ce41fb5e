package entities

import "time"

// BookStatus is the closed set of circulation states a book can be in.
// A book's status always reflects its reservation/checkout rows: Reserved iff
// an active reservation exists, CheckedOut iff an open checkout exists.
type BookStatus string

const (
	BookStatusAvailable   BookStatus = "available"
	BookStatusReserved    BookStatus = "reserved"
	BookStatusCheckedOut  BookStatus = "checked_out"
	BookStatusUnavailable BookStatus = "permanently_unavailable"
)

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusAvailable, BookStatusReserved, BookStatusCheckedOut, BookStatusUnavailable:
		return true
	}
	return false
}

// Book is a physical library item tracked through the circulation lifecycle.
// Version is the optimistic-concurrency token: every write compares against
// the version read at load time and increments it.
type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"index;size:512" json:"title"`
	Author          string     `gorm:"index;size:256" json:"author"`
	Genre           string     `gorm:"index;size:100" json:"genre"`
	Publisher       string     `gorm:"size:256" json:"publisher"`
	PublicationDate time.Time  `json:"publication_date"`
	Status          BookStatus `gorm:"index;size:32" json:"status"`
	Version         uint       `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// Reservation is a 48-hour hold a reader places on an available book.
// At most one active reservation exists per book (unique index on BookID).
type Reservation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BookID          uint      `gorm:"uniqueIndex" json:"book_id"`
	UserID          uint      `gorm:"index" json:"user_id"`
	ReservationDate time.Time `json:"reservation_date"`
	ValidUntil      time.Time `gorm:"index" json:"valid_until"`
	Version         uint      `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// Expired reports whether the reservation's validity window has elapsed.
func (r Reservation) Expired(now time.Time) bool {
	return now.After(r.ValidUntil)
}

// Checkout records a book being lent to a reader. EndTime is nil while the
// checkout is open; closed rows are retained indefinitely as lending history.
// At most one open checkout exists per book: the engine only creates one
// together with the Reserved→CheckedOut transition, and the partial unique
// index on BookID makes the schema reject a second open row outright.
type Checkout struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	BookID    uint       `gorm:"index;uniqueIndex:idx_checkouts_open_book,where:end_time IS NULL" json:"book_id"`
	UserID    uint       `gorm:"index" json:"user_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `gorm:"index" json:"end_time,omitempty"`
	Version   uint       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Checkout) TableName() string {
	return "checkouts"
}

// Open reports whether the checkout has not been returned yet.
func (c Checkout) Open() bool {
	return c.EndTime == nil
}
