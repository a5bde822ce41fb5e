package circulation

import (
	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

// hookedStore decorates a real store with hooks that fire after specific
// reads. Tests use it to stage a concurrent write in the window between an
// operation's precondition read and its guarded commit, making race outcomes
// deterministic.
type hookedStore struct {
	*store.Store

	afterGetBook         func(book *entities.Book)
	afterAllReservations func()
}

func (h *hookedStore) GetBook(id uint) (*entities.Book, error) {
	book, err := h.Store.GetBook(id)
	if err == nil && h.afterGetBook != nil {
		hook := h.afterGetBook
		h.afterGetBook = nil // fire once
		hook(book)
	}
	return book, err
}

func (h *hookedStore) AllReservations() ([]entities.Reservation, error) {
	reservations, err := h.Store.AllReservations()
	if err == nil && h.afterAllReservations != nil {
		hook := h.afterAllReservations
		h.afterAllReservations = nil
		hook()
	}
	return reservations, err
}
