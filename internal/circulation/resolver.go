package circulation

import (
	"errors"
	"fmt"

	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

// Resolver wraps every engine call and turns a lost compare-and-swap into an
// actionable result: it re-reads current truth and reports whether the caller
// lost a race (ErrRaceLost) or the entity disappeared entirely
// (ErrEntityGone). It never re-issues the underlying operation — a race
// loser's intent is not safely replayable without explicit re-confirmation,
// so the failure always reaches the caller.
type Resolver struct {
	engine *Engine
	store  Store
}

func NewResolver(engine *Engine, s Store) *Resolver {
	return &Resolver{engine: engine, store: s}
}

func (r *Resolver) Reserve(bookID, userID uint) (*entities.Reservation, error) {
	reservation, err := r.engine.Reserve(bookID, userID)
	if err != nil && errors.Is(err, store.ErrVersionConflict) {
		return nil, r.classifyBookConflict(bookID, entities.BookStatusAvailable)
	}
	return reservation, err
}

func (r *Resolver) Checkout(reservationID uint) (*entities.Checkout, error) {
	checkout, err := r.engine.Checkout(reservationID)
	if err != nil && errors.Is(err, store.ErrVersionConflict) {
		return nil, r.classifyReservationConflict(reservationID, entities.BookStatusReserved)
	}
	return checkout, err
}

func (r *Resolver) Return(checkoutID uint) (*entities.Checkout, error) {
	checkout, err := r.engine.Return(checkoutID)
	if err != nil && errors.Is(err, store.ErrVersionConflict) {
		return nil, r.classifyCheckoutConflict(checkoutID)
	}
	return checkout, err
}

// Unreserve tolerates any book status, so its only precondition is that the
// reservation exists. Every lifecycle transition that could defeat it
// (checkout, another unreserve, the reaper, retire) consumes the reservation;
// if the reservation survived the conflict, the lost write was an unrelated
// book edit and is surfaced untranslated.
func (r *Resolver) Unreserve(reservationID uint) error {
	err := r.engine.Unreserve(reservationID)
	if err != nil && errors.Is(err, store.ErrVersionConflict) {
		if _, readErr := r.store.GetReservation(reservationID); readErr != nil {
			if errors.Is(readErr, store.ErrNotFound) {
				return fmt.Errorf("reservation %d: %w", reservationID, ErrEntityGone)
			}
			return readErr
		}
		return store.ErrVersionConflict
	}
	return err
}

// Retire accepts a book in any circulating status; only another retire can
// defeat its precondition, by deleting the row or marking it unavailable.
// Any other conflicting write leaves the book retirable and is surfaced
// untranslated.
func (r *Resolver) Retire(bookID uint) error {
	err := r.engine.Retire(bookID)
	if err != nil && errors.Is(err, store.ErrVersionConflict) {
		book, readErr := r.store.GetBook(bookID)
		if readErr != nil {
			if errors.Is(readErr, store.ErrNotFound) {
				return fmt.Errorf("book %d: %w", bookID, ErrEntityGone)
			}
			return readErr
		}
		if book.Status == entities.BookStatusUnavailable {
			return fmt.Errorf("book %d already retired: %w", bookID, ErrRaceLost)
		}
		return store.ErrVersionConflict
	}
	return err
}

// classifyBookConflict re-reads the book after a lost write and decides what
// the conflict means for an operation that required the given status.
func (r *Resolver) classifyBookConflict(bookID uint, required entities.BookStatus) error {
	book, err := r.store.GetBook(bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("book %d: %w", bookID, ErrEntityGone)
		}
		return err
	}
	if book.Status != required {
		return fmt.Errorf("book %d now %q: %w", bookID, book.Status, ErrRaceLost)
	}
	// Precondition still holds; the conflict came from an unrelated write
	// (e.g. a metadata edit). Surface it untranslated.
	return store.ErrVersionConflict
}

func (r *Resolver) classifyReservationConflict(reservationID uint, required entities.BookStatus) error {
	reservation, err := r.store.GetReservation(reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("reservation %d: %w", reservationID, ErrEntityGone)
		}
		return err
	}
	return r.classifyBookConflict(reservation.BookID, required)
}

func (r *Resolver) classifyCheckoutConflict(checkoutID uint) error {
	checkout, err := r.store.GetCheckout(checkoutID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("checkout %d: %w", checkoutID, ErrEntityGone)
		}
		return err
	}
	if !checkout.Open() {
		return fmt.Errorf("checkout %d already closed: %w", checkoutID, ErrRaceLost)
	}
	return r.classifyBookConflict(checkout.BookID, entities.BookStatusCheckedOut)
}
