package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

// recordingAudit captures audit events in memory.
type recordingAudit struct {
	events []entities.AuditEvent
}

func (r *recordingAudit) Record(event *entities.AuditEvent) error {
	r.events = append(r.events, *event)
	return nil
}

func TestService_ListBooks_SweepsExpiredReservations(t *testing.T) {
	s, db, cleanup := setupTestStore(t)
	defer cleanup()

	user := seedUser(t, db, "alice")
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	now := start
	service := NewService(s, testTTL, nil, WithClock(func() time.Time { return now }))

	book := seedBook(t, s, entities.BookStatusAvailable)
	_, err := service.Reserve(book.ID, user.ID)
	require.NoError(t, err)

	now = start.Add(49 * time.Hour)
	books, err := service.ListBooks(store.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, entities.BookStatusAvailable, books[0].Status,
		"listing observes post-sweep state")

	reservations, err := s.AllReservations()
	require.NoError(t, err)
	assert.Empty(t, reservations)
}

func TestService_ListReservations_SweepsExpiredReservations(t *testing.T) {
	s, db, cleanup := setupTestStore(t)
	defer cleanup()

	user := seedUser(t, db, "alice")
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	now := start
	service := NewService(s, testTTL, nil, WithClock(func() time.Time { return now }))

	book := seedBook(t, s, entities.BookStatusAvailable)
	_, err := service.Reserve(book.ID, user.ID)
	require.NoError(t, err)

	now = start.Add(49 * time.Hour)
	rows, err := service.ListReservations(store.RowFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows, "expired holds never appear in listings")
}

func TestService_ListCheckouts_DoesNotSweep(t *testing.T) {
	s, db, cleanup := setupTestStore(t)
	defer cleanup()

	user := seedUser(t, db, "alice")
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	now := start
	service := NewService(s, testTTL, nil, WithClock(func() time.Time { return now }))

	book := seedBook(t, s, entities.BookStatusAvailable)
	_, err := service.Reserve(book.ID, user.ID)
	require.NoError(t, err)

	now = start.Add(49 * time.Hour)
	_, err = service.ListCheckouts(store.RowFilter{})
	require.NoError(t, err)

	// The stale hold survives a checkout listing; only enumerating reads of
	// books and reservations sweep.
	reservations, err := s.AllReservations()
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
}

func TestService_FullLifecycle(t *testing.T) {
	s, db, cleanup := setupTestStore(t)
	defer cleanup()

	reader := seedUser(t, db, "alice")
	librarian := seedUser(t, db, "librarian")
	book := seedBook(t, s, entities.BookStatusAvailable)
	service := NewService(s, testTTL, nil)

	reservation, err := service.Reserve(book.ID, reader.ID)
	require.NoError(t, err)

	checkout, err := service.Checkout(reservation.ID, librarian.ID)
	require.NoError(t, err)
	assert.Equal(t, reader.ID, checkout.UserID)

	returned, err := service.Return(checkout.ID, librarian.ID)
	require.NoError(t, err)
	assert.NotNil(t, returned.EndTime)

	got, err := service.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, got.Status)

	// Second cycle works on the same copy.
	_, err = service.Reserve(book.ID, reader.ID)
	require.NoError(t, err)
}

func TestService_RecordsAuditTrail(t *testing.T) {
	s, db, cleanup := setupTestStore(t)
	defer cleanup()

	reader := seedUser(t, db, "alice")
	librarian := seedUser(t, db, "librarian")
	book := seedBook(t, s, entities.BookStatusAvailable)

	audit := &recordingAudit{}
	service := NewService(s, testTTL, audit)

	reservation, err := service.Reserve(book.ID, reader.ID)
	require.NoError(t, err)
	checkout, err := service.Checkout(reservation.ID, librarian.ID)
	require.NoError(t, err)
	_, err = service.Return(checkout.ID, librarian.ID)
	require.NoError(t, err)

	// A failed operation is recorded too.
	_, err = service.Checkout(reservation.ID, librarian.ID)
	require.Error(t, err)

	require.Len(t, audit.events, 4)
	assert.Equal(t, entities.AuditEventReserve, audit.events[0].EventType)
	assert.Equal(t, reader.ID, audit.events[0].UserID)
	assert.Equal(t, entities.AuditStatusSuccess, audit.events[0].Status)

	assert.Equal(t, entities.AuditEventCheckout, audit.events[1].EventType)
	assert.Equal(t, librarian.ID, audit.events[1].UserID)

	assert.Equal(t, entities.AuditEventReturn, audit.events[2].EventType)

	failed := audit.events[3]
	assert.Equal(t, entities.AuditEventCheckout, failed.EventType)
	assert.Equal(t, entities.AuditStatusFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMsg)
}

func TestService_Unreserve_ActorRecorded(t *testing.T) {
	s, db, cleanup := setupTestStore(t)
	defer cleanup()

	reader := seedUser(t, db, "alice")
	book := seedBook(t, s, entities.BookStatusAvailable)

	audit := &recordingAudit{}
	service := NewService(s, testTTL, audit)

	reservation, err := service.Reserve(book.ID, reader.ID)
	require.NoError(t, err)
	require.NoError(t, service.Unreserve(reservation.ID, reader.ID))

	require.Len(t, audit.events, 2)
	assert.Equal(t, entities.AuditEventUnreserve, audit.events[1].EventType)
	assert.Equal(t, reader.ID, audit.events[1].UserID)
}
