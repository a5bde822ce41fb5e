package circulation

import (
	"errors"
	"log"

	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

// ReapExpired retires every reservation whose validity window has elapsed,
// reverting the owning book to Available. It runs inline on read paths that
// enumerate reservations, not on a timer.
//
// Each expired reservation is retired with its own write set using the
// versions read at enumeration time. A lost version check means a concurrent
// operation already moved the book on; whichever writer won left the
// status/reservation invariant intact, so the reaper skips silently. Running
// it repeatedly is a no-op once the backlog is clear, and it never surfaces a
// user-visible error.
func (e *Engine) ReapExpired() {
	reservations, err := e.store.AllReservations()
	if err != nil {
		log.Printf("reaper: enumerate reservations: %v", err)
		return
	}

	now := e.now()
	for i := range reservations {
		reservation := reservations[i]
		if !reservation.Expired(now) {
			continue
		}

		book, err := e.store.GetBook(reservation.BookID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Book vanished under the reservation; drop the orphan.
				_ = e.store.Apply(store.DeleteReservation(&reservation))
				continue
			}
			log.Printf("reaper: load book %d: %v", reservation.BookID, err)
			continue
		}

		book.Status = entities.BookStatusAvailable
		err = e.store.Apply(store.UpdateBook(book), store.DeleteReservation(&reservation))
		switch {
		case err == nil:
		case errors.Is(err, store.ErrVersionConflict):
			// A concurrent writer won; their write already established the
			// correct state for this book.
		default:
			log.Printf("reaper: expire reservation %d: %v", reservation.ID, err)
		}
	}
}
