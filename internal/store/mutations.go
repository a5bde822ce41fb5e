package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/librarium/internal/entities"
)

// Mutation is one member of an atomic write set. Updates and deletes carry the
// version token the entity was read with; creates insert at version 1.
type Mutation interface {
	apply(tx *gorm.DB) error
}

type mutationFunc func(tx *gorm.DB) error

func (f mutationFunc) apply(tx *gorm.DB) error { return f(tx) }

// UpdateBook writes the book's mutable columns, guarded by the version token
// the book was loaded with.
func UpdateBook(book *entities.Book) Mutation {
	expected := book.Version
	return mutationFunc(func(tx *gorm.DB) error {
		res := tx.Model(&entities.Book{}).
			Where("id = ? AND version = ?", book.ID, expected).
			Updates(map[string]any{
				"title":            book.Title,
				"author":           book.Author,
				"genre":            book.Genre,
				"publisher":        book.Publisher,
				"publication_date": book.PublicationDate,
				"status":           book.Status,
				"version":          expected + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("update book %d: %w", book.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
}

// CreateBook inserts a new book at version 1.
func CreateBook(book *entities.Book) Mutation {
	return mutationFunc(func(tx *gorm.DB) error {
		book.Version = 1
		if err := tx.Create(book).Error; err != nil {
			return fmt.Errorf("create book %q: %w", book.Title, err)
		}
		return nil
	})
}

// DeleteBook removes the book row, guarded by its version token.
func DeleteBook(book *entities.Book) Mutation {
	expected := book.Version
	return mutationFunc(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", book.ID, expected).
			Delete(&entities.Book{})
		if res.Error != nil {
			return fmt.Errorf("delete book %d: %w", book.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
}

// CreateReservation inserts a new reservation at version 1.
func CreateReservation(reservation *entities.Reservation) Mutation {
	return mutationFunc(func(tx *gorm.DB) error {
		reservation.Version = 1
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("create reservation for book %d: %w", reservation.BookID, err)
		}
		return nil
	})
}

// DeleteReservation removes the reservation row, guarded by its version token.
func DeleteReservation(reservation *entities.Reservation) Mutation {
	expected := reservation.Version
	return mutationFunc(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", reservation.ID, expected).
			Delete(&entities.Reservation{})
		if res.Error != nil {
			return fmt.Errorf("delete reservation %d: %w", reservation.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
}

// CreateCheckout inserts a new checkout at version 1.
func CreateCheckout(checkout *entities.Checkout) Mutation {
	return mutationFunc(func(tx *gorm.DB) error {
		checkout.Version = 1
		if err := tx.Create(checkout).Error; err != nil {
			return fmt.Errorf("create checkout for book %d: %w", checkout.BookID, err)
		}
		return nil
	})
}

// UpdateCheckout writes the checkout's end time, guarded by its version token.
func UpdateCheckout(checkout *entities.Checkout) Mutation {
	expected := checkout.Version
	return mutationFunc(func(tx *gorm.DB) error {
		res := tx.Model(&entities.Checkout{}).
			Where("id = ? AND version = ?", checkout.ID, expected).
			Updates(map[string]any{
				"end_time": checkout.EndTime,
				"version":  expected + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("update checkout %d: %w", checkout.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
}
