// Package store is the entity store for circulation state. Every record
// carries a version token; reads hand the token out embedded in the entity
// and writes go through Apply, which compares-and-swaps each entity against
// the version read at load time inside one transaction.
package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarium/internal/entities"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned from Apply when any entity in the write
	// set was modified since it was read. It is a normal outcome under
	// concurrency, never a fatal condition.
	ErrVersionConflict = errors.New("version conflict")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetBook loads a book together with its current version token.
func (s *Store) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := s.db.First(&book, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &book, nil
}

func (s *Store) GetReservation(id uint) (*entities.Reservation, error) {
	var reservation entities.Reservation
	if err := s.db.First(&reservation, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &reservation, nil
}

func (s *Store) GetCheckout(id uint) (*entities.Checkout, error) {
	var checkout entities.Checkout
	if err := s.db.First(&checkout, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &checkout, nil
}

// ActiveReservation returns the active reservation for a book, or ErrNotFound.
func (s *Store) ActiveReservation(bookID uint) (*entities.Reservation, error) {
	var reservation entities.Reservation
	err := s.db.Where("book_id = ?", bookID).First(&reservation).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &reservation, nil
}

// OpenCheckout returns the open checkout for a book, or ErrNotFound.
func (s *Store) OpenCheckout(bookID uint) (*entities.Checkout, error) {
	var checkout entities.Checkout
	err := s.db.Where("book_id = ? AND end_time IS NULL", bookID).First(&checkout).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &checkout, nil
}

// HasCheckoutHistory reports whether any checkout row, open or closed, exists
// for the book. Retire uses this to decide between soft-retire and deletion.
func (s *Store) HasCheckoutHistory(bookID uint) (bool, error) {
	var count int64
	err := s.db.Model(&entities.Checkout{}).Where("book_id = ?", bookID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AllReservations returns every reservation with its current version token.
// The expiry reaper enumerates these on read paths.
func (s *Store) AllReservations() ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := s.db.Order("id ASC").Find(&reservations).Error
	return reservations, err
}

// BookFilter narrows catalog listings. Title matches as a case-insensitive
// substring; Genre matches exactly.
type BookFilter struct {
	Title string
	Genre string
}

// Books lists the catalog, most recently added first.
func (s *Store) Books(filter BookFilter) ([]entities.Book, error) {
	query := s.db.Model(&entities.Book{})
	if filter.Title != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Title)+"%")
	}
	if filter.Genre != "" {
		query = query.Where("genre = ?", filter.Genre)
	}
	var books []entities.Book
	err := query.Order("id DESC").Find(&books).Error
	return books, err
}

// Genres returns the distinct genres present in the catalog.
func (s *Store) Genres() ([]string, error) {
	var genres []string
	err := s.db.Model(&entities.Book{}).Distinct("genre").Order("genre ASC").Pluck("genre", &genres).Error
	return genres, err
}

// RowFilter narrows reservation and checkout listings. UserID restricts to a
// single user's rows (used for readers); the string filters match
// case-insensitive substrings.
type RowFilter struct {
	Title    string
	Author   string
	Username string
	UserID   uint
}

// ReservationRow is a reservation joined with book and user data for listings.
type ReservationRow struct {
	entities.Reservation
	Title    string `json:"title"`
	Author   string `json:"author"`
	Username string `json:"username"`
}

// ReservationRows lists reservations with book title/author and username
// attached, applying the filter.
func (s *Store) ReservationRows(filter RowFilter) ([]ReservationRow, error) {
	query := s.db.Model(&entities.Reservation{}).
		Select("reservations.*, books.title AS title, books.author AS author, users.username AS username").
		Joins("JOIN books ON books.id = reservations.book_id").
		Joins("JOIN users ON users.id = reservations.user_id")
	query = applyRowFilter(query, filter, "reservations")

	var rows []ReservationRow
	err := query.Order("reservations.id ASC").Find(&rows).Error
	return rows, err
}

// CheckoutRow is a checkout joined with book and user data for listings.
type CheckoutRow struct {
	entities.Checkout
	Title    string `json:"title"`
	Author   string `json:"author"`
	Username string `json:"username"`
}

// CheckoutRows lists checkouts, open and closed, with book title/author and
// username attached, applying the filter.
func (s *Store) CheckoutRows(filter RowFilter) ([]CheckoutRow, error) {
	query := s.db.Model(&entities.Checkout{}).
		Select("checkouts.*, books.title AS title, books.author AS author, users.username AS username").
		Joins("JOIN books ON books.id = checkouts.book_id").
		Joins("JOIN users ON users.id = checkouts.user_id")
	query = applyRowFilter(query, filter, "checkouts")

	var rows []CheckoutRow
	err := query.Order("checkouts.id ASC").Find(&rows).Error
	return rows, err
}

func applyRowFilter(query *gorm.DB, filter RowFilter, table string) *gorm.DB {
	if filter.Title != "" {
		query = query.Where("LOWER(books.title) LIKE ?", "%"+strings.ToLower(filter.Title)+"%")
	}
	if filter.Author != "" {
		query = query.Where("LOWER(books.author) LIKE ?", "%"+strings.ToLower(filter.Author)+"%")
	}
	if filter.Username != "" {
		query = query.Where("LOWER(users.username) LIKE ?", "%"+strings.ToLower(filter.Username)+"%")
	}
	if filter.UserID != 0 {
		query = query.Where(table+".user_id = ?", filter.UserID)
	}
	return query
}

// Apply executes a write set atomically: either every mutation succeeds, each
// bumping its entity's version token, or none is applied. A version mismatch
// on any member aborts the whole set with ErrVersionConflict.
func (s *Store) Apply(mutations ...Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range mutations {
			if err := m.apply(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("store read: %w", err)
}
