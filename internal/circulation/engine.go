// Package circulation implements the book lifecycle state machine:
// reserve, checkout, return, unreserve and retire, together with the lazy
// reservation-expiry reaper and the conflict resolver that classifies lost
// writes for the adapters. Both the JSON API and the interactive pages drive
// the same engine, so concurrency behavior is identical for either entry
// point.
package circulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

// Store is the entity-store surface the engine needs. *store.Store satisfies
// it; tests substitute decorated implementations to stage races.
type Store interface {
	GetBook(id uint) (*entities.Book, error)
	GetReservation(id uint) (*entities.Reservation, error)
	GetCheckout(id uint) (*entities.Checkout, error)
	ActiveReservation(bookID uint) (*entities.Reservation, error)
	OpenCheckout(bookID uint) (*entities.Checkout, error)
	HasCheckoutHistory(bookID uint) (bool, error)
	AllReservations() ([]entities.Reservation, error)
	Apply(mutations ...store.Mutation) error
}

// Engine enforces the book state machine. Each operation evaluates its
// preconditions against state read at call start and commits through a single
// atomic write set; a lost version check aborts the whole operation with
// store.ErrVersionConflict and no partial effect.
type Engine struct {
	store          Store
	reservationTTL time.Duration
	now            func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine. reservationTTL is the validity window granted
// to new reservations.
func NewEngine(s Store, reservationTTL time.Duration, opts ...EngineOption) *Engine {
	e := &Engine{
		store:          s,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reserve places a hold on an available book for the given user. The book
// becomes Reserved and a reservation valid for the configured window is
// created.
func (e *Engine) Reserve(bookID, userID uint) (*entities.Reservation, error) {
	book, err := e.store.GetBook(bookID)
	if err != nil {
		return nil, translateRead(err, "book", bookID)
	}
	if book.Status != entities.BookStatusAvailable {
		return nil, fmt.Errorf("reserve book %d in status %q: %w", bookID, book.Status, ErrInvalidTransition)
	}

	now := e.now()
	reservation := &entities.Reservation{
		BookID:          book.ID,
		UserID:          userID,
		ReservationDate: now,
		ValidUntil:      now.Add(e.reservationTTL),
	}
	book.Status = entities.BookStatusReserved

	if err := e.store.Apply(store.UpdateBook(book), store.CreateReservation(reservation)); err != nil {
		return nil, err
	}
	return reservation, nil
}

// Checkout converts a reservation into an open checkout: the reservation is
// consumed, the book becomes CheckedOut and a checkout row with no end time is
// created for the reservation's holder.
func (e *Engine) Checkout(reservationID uint) (*entities.Checkout, error) {
	reservation, err := e.store.GetReservation(reservationID)
	if err != nil {
		return nil, translateRead(err, "reservation", reservationID)
	}
	book, err := e.store.GetBook(reservation.BookID)
	if err != nil {
		return nil, translateRead(err, "book", reservation.BookID)
	}
	if book.Status != entities.BookStatusReserved {
		return nil, fmt.Errorf("checkout book %d in status %q: %w", book.ID, book.Status, ErrInvalidTransition)
	}

	checkout := &entities.Checkout{
		BookID:    book.ID,
		UserID:    reservation.UserID,
		StartTime: e.now(),
	}
	book.Status = entities.BookStatusCheckedOut

	err = e.store.Apply(
		store.UpdateBook(book),
		store.DeleteReservation(reservation),
		store.CreateCheckout(checkout),
	)
	if err != nil {
		return nil, err
	}
	return checkout, nil
}

// Return closes an open checkout and makes the book available again.
func (e *Engine) Return(checkoutID uint) (*entities.Checkout, error) {
	checkout, err := e.store.GetCheckout(checkoutID)
	if err != nil {
		return nil, translateRead(err, "checkout", checkoutID)
	}
	if !checkout.Open() {
		return nil, fmt.Errorf("return checkout %d already closed: %w", checkoutID, ErrInvalidTransition)
	}
	book, err := e.store.GetBook(checkout.BookID)
	if err != nil {
		return nil, translateRead(err, "book", checkout.BookID)
	}
	if book.Status != entities.BookStatusCheckedOut {
		return nil, fmt.Errorf("return book %d in status %q: %w", book.ID, book.Status, ErrInvalidTransition)
	}

	now := e.now()
	checkout.EndTime = &now
	book.Status = entities.BookStatusAvailable

	if err := e.store.Apply(store.UpdateBook(book), store.UpdateCheckout(checkout)); err != nil {
		return nil, err
	}
	return checkout, nil
}

// Unreserve cancels a reservation. The book is set back to Available
// regardless of its current status; this tolerant transition matches the
// shipped behavior and is relied upon by callers racing the reaper.
func (e *Engine) Unreserve(reservationID uint) error {
	reservation, err := e.store.GetReservation(reservationID)
	if err != nil {
		return translateRead(err, "reservation", reservationID)
	}
	book, err := e.store.GetBook(reservation.BookID)
	if err != nil {
		return translateRead(err, "book", reservation.BookID)
	}

	book.Status = entities.BookStatusAvailable

	return e.store.Apply(store.UpdateBook(book), store.DeleteReservation(reservation))
}

// Retire takes a book out of circulation. With checkout history the row is
// kept as PermanentlyUnavailable for audit; without history it is deleted
// outright. Any active reservation is removed and an open checkout is closed,
// all in one write set.
func (e *Engine) Retire(bookID uint) error {
	book, err := e.store.GetBook(bookID)
	if err != nil {
		return translateRead(err, "book", bookID)
	}

	hasHistory, err := e.store.HasCheckoutHistory(bookID)
	if err != nil {
		return fmt.Errorf("retire book %d: %w", bookID, err)
	}

	var mutations []store.Mutation
	if hasHistory {
		book.Status = entities.BookStatusUnavailable
		mutations = append(mutations, store.UpdateBook(book))
	} else {
		mutations = append(mutations, store.DeleteBook(book))
	}

	if reservation, err := e.store.ActiveReservation(bookID); err == nil {
		mutations = append(mutations, store.DeleteReservation(reservation))
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("retire book %d: %w", bookID, err)
	}

	if checkout, err := e.store.OpenCheckout(bookID); err == nil {
		now := e.now()
		checkout.EndTime = &now
		mutations = append(mutations, store.UpdateCheckout(checkout))
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("retire book %d: %w", bookID, err)
	}

	return e.store.Apply(mutations...)
}

func translateRead(err error, kind string, id uint) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return err
}
