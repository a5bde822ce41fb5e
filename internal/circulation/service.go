package circulation

import (
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

// AuditRecorder persists one audit event per lifecycle transition.
type AuditRecorder interface {
	Record(event *entities.AuditEvent) error
}

// Service is the circulation surface both adapters consume: the five
// lifecycle operations wrapped by the conflict resolver, plus the read paths
// that trigger expiry reaping. Auditing is best-effort and never affects the
// operation's outcome.
type Service struct {
	engine   *Engine
	resolver *Resolver
	store    *store.Store
	audit    AuditRecorder
}

func NewService(s *store.Store, reservationTTL time.Duration, audit AuditRecorder, opts ...EngineOption) *Service {
	engine := NewEngine(s, reservationTTL, opts...)
	return &Service{
		engine:   engine,
		resolver: NewResolver(engine, s),
		store:    s,
		audit:    audit,
	}
}

// Engine exposes the underlying engine, primarily for tests.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Reserve places a hold on a book for the given reader.
func (s *Service) Reserve(bookID, userID uint) (*entities.Reservation, error) {
	reservation, err := s.resolver.Reserve(bookID, userID)
	s.record(entities.AuditEventReserve, userID, &bookID, fmt.Sprintf("reserve book %d", bookID), err)
	return reservation, err
}

// Checkout converts a reservation into an open checkout. actorID is the
// librarian performing the handout, recorded for audit; the checkout itself
// belongs to the reservation's holder.
func (s *Service) Checkout(reservationID, actorID uint) (*entities.Checkout, error) {
	checkout, err := s.resolver.Checkout(reservationID)
	var bookID *uint
	if checkout != nil {
		bookID = &checkout.BookID
	}
	s.record(entities.AuditEventCheckout, actorID, bookID, fmt.Sprintf("checkout reservation %d", reservationID), err)
	return checkout, err
}

// Return closes an open checkout.
func (s *Service) Return(checkoutID, actorID uint) (*entities.Checkout, error) {
	checkout, err := s.resolver.Return(checkoutID)
	var bookID *uint
	if checkout != nil {
		bookID = &checkout.BookID
	}
	s.record(entities.AuditEventReturn, actorID, bookID, fmt.Sprintf("return checkout %d", checkoutID), err)
	return checkout, err
}

// Unreserve cancels a reservation.
func (s *Service) Unreserve(reservationID, actorID uint) error {
	err := s.resolver.Unreserve(reservationID)
	s.record(entities.AuditEventUnreserve, actorID, nil, fmt.Sprintf("unreserve reservation %d", reservationID), err)
	return err
}

// Retire takes a book out of circulation.
func (s *Service) Retire(bookID, actorID uint) error {
	err := s.resolver.Retire(bookID)
	s.record(entities.AuditEventRetire, actorID, &bookID, fmt.Sprintf("retire book %d", bookID), err)
	return err
}

// ListBooks returns the catalog with statuses current as of this call: the
// reaper runs first so stale reservations do not leave books stuck Reserved.
func (s *Service) ListBooks(filter store.BookFilter) ([]entities.Book, error) {
	s.engine.ReapExpired()
	return s.store.Books(filter)
}

// Genres returns the distinct genres in the catalog.
func (s *Service) Genres() ([]string, error) {
	return s.store.Genres()
}

// GetBook fetches one book.
func (s *Service) GetBook(id uint) (*entities.Book, error) {
	book, err := s.store.GetBook(id)
	if err != nil {
		return nil, translateRead(err, "book", id)
	}
	return book, nil
}

// ListReservations returns reservation listing rows, reaping expired
// reservations first.
func (s *Service) ListReservations(filter store.RowFilter) ([]store.ReservationRow, error) {
	s.engine.ReapExpired()
	return s.store.ReservationRows(filter)
}

// GetReservation fetches one reservation.
func (s *Service) GetReservation(id uint) (*entities.Reservation, error) {
	reservation, err := s.store.GetReservation(id)
	if err != nil {
		return nil, translateRead(err, "reservation", id)
	}
	return reservation, nil
}

// ListCheckouts returns checkout listing rows, open and closed.
func (s *Service) ListCheckouts(filter store.RowFilter) ([]store.CheckoutRow, error) {
	return s.store.CheckoutRows(filter)
}

// GetCheckout fetches one checkout.
func (s *Service) GetCheckout(id uint) (*entities.Checkout, error) {
	checkout, err := s.store.GetCheckout(id)
	if err != nil {
		return nil, translateRead(err, "checkout", id)
	}
	return checkout, nil
}

func (s *Service) record(eventType entities.AuditEventType, userID uint, bookID *uint, description string, opErr error) {
	if s.audit == nil {
		return
	}
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   eventType,
		BookID:      bookID,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}
	if opErr != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = opErr.Error()
	}
	if err := s.audit.Record(event); err != nil {
		log.Printf("audit: record %s: %v", eventType, err)
	}
}
