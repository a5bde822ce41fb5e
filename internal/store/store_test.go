package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarium/internal/entities"
)

func setupTestDB(t *testing.T) (*Store, *gorm.DB, func()) {
	dbPath := "./test_store_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Reservation{},
		&entities.Checkout{},
	)
	require.NoError(t, err)

	s := New(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return s, db, cleanup
}

func createBook(t *testing.T, s *Store, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:  title,
		Author: "Test Author",
		Genre:  "Fiction",
		Status: entities.BookStatusAvailable,
	}
	require.NoError(t, s.Apply(CreateBook(book)))
	return book
}

func createUser(t *testing.T, db *gorm.DB, username string, role entities.UserRole) *entities.User {
	t.Helper()
	user := &entities.User{Username: username, Email: username + "@example.com", Role: role, Token: "token-" + username}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestStore_GetBook_NotFound(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := s.GetBook(12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateBook_BumpsVersion(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, s, "Dune")
	require.Equal(t, uint(1), book.Version)

	book.Status = entities.BookStatusReserved
	require.NoError(t, s.Apply(UpdateBook(book)))

	got, err := s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusReserved, got.Status)
	assert.Equal(t, uint(2), got.Version)
}

func TestStore_UpdateBook_StaleVersionConflicts(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, s, "Dune")

	first := *book
	second := *book

	first.Status = entities.BookStatusReserved
	require.NoError(t, s.Apply(UpdateBook(&first)))

	// Still carries version 1, which was consumed by the first writer.
	second.Status = entities.BookStatusCheckedOut
	err := s.Apply(UpdateBook(&second))
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusReserved, got.Status)
	assert.Equal(t, uint(2), got.Version)
}

func TestStore_DeleteBook_StaleVersionConflicts(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, s, "Dune")

	updated := *book
	updated.Status = entities.BookStatusReserved
	require.NoError(t, s.Apply(UpdateBook(&updated)))

	err := s.Apply(DeleteBook(book))
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = s.GetBook(book.ID)
	assert.NoError(t, err)
}

func TestStore_Apply_RollsBackWholeWriteSet(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, s, "Dune")

	// Second mutation references a reservation that does not exist, so its
	// guarded delete affects zero rows and the whole set must roll back.
	ghost := &entities.Reservation{Version: 1}
	ghost.ID = 999

	update := *book
	update.Status = entities.BookStatusReserved
	err := s.Apply(UpdateBook(&update), DeleteReservation(ghost))
	require.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, got.Status)
	assert.Equal(t, uint(1), got.Version)
}

func TestStore_ActiveReservationAndOpenCheckout(t *testing.T) {
	s, db, cleanup := setupTestDB(t)
	defer cleanup()

	user := createUser(t, db, "reader", entities.RoleReader)
	book := createBook(t, s, "Dune")

	_, err := s.ActiveReservation(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	reservation := &entities.Reservation{
		BookID:          book.ID,
		UserID:          user.ID,
		ReservationDate: time.Now(),
		ValidUntil:      time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, s.Apply(CreateReservation(reservation)))

	got, err := s.ActiveReservation(book.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.ID, got.ID)

	_, err = s.OpenCheckout(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	checkout := &entities.Checkout{BookID: book.ID, UserID: user.ID, StartTime: time.Now()}
	require.NoError(t, s.Apply(CreateCheckout(checkout)))

	open, err := s.OpenCheckout(book.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.ID, open.ID)

	// Closing the checkout removes it from the open set.
	now := time.Now()
	checkout.EndTime = &now
	require.NoError(t, s.Apply(UpdateCheckout(checkout)))

	_, err = s.OpenCheckout(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_HasCheckoutHistory(t *testing.T) {
	s, db, cleanup := setupTestDB(t)
	defer cleanup()

	user := createUser(t, db, "reader", entities.RoleReader)
	book := createBook(t, s, "Dune")

	has, err := s.HasCheckoutHistory(book.ID)
	require.NoError(t, err)
	assert.False(t, has)

	now := time.Now()
	checkout := &entities.Checkout{BookID: book.ID, UserID: user.ID, StartTime: now, EndTime: &now}
	require.NoError(t, s.Apply(CreateCheckout(checkout)))

	has, err = s.HasCheckoutHistory(book.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_Books_Filters(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createBook(t, s, "Dune")
	gatsby := &entities.Book{
		Title:  "The Great Gatsby",
		Author: "F. Scott Fitzgerald",
		Genre:  "Classic",
		Status: entities.BookStatusAvailable,
	}
	require.NoError(t, s.Apply(CreateBook(gatsby)))

	all, err := s.Books(BookFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byTitle, err := s.Books(BookFilter{Title: "gatsby"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, gatsby.ID, byTitle[0].ID)

	byGenre, err := s.Books(BookFilter{Genre: "Fiction"})
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, dune.ID, byGenre[0].ID)

	none, err := s.Books(BookFilter{Title: "gatsby", Genre: "Fiction"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Genres(t *testing.T) {
	s, _, cleanup := setupTestDB(t)
	defer cleanup()

	createBook(t, s, "Dune")
	gatsby := &entities.Book{Title: "The Great Gatsby", Author: "Fitzgerald", Genre: "Classic", Status: entities.BookStatusAvailable}
	require.NoError(t, s.Apply(CreateBook(gatsby)))

	genres, err := s.Genres()
	require.NoError(t, err)
	assert.Equal(t, []string{"Classic", "Fiction"}, genres)
}

func TestStore_ReservationRows_JoinAndFilter(t *testing.T) {
	s, db, cleanup := setupTestDB(t)
	defer cleanup()

	alice := createUser(t, db, "alice", entities.RoleReader)
	bob := createUser(t, db, "bob", entities.RoleReader)
	dune := createBook(t, s, "Dune")
	gatsby := &entities.Book{Title: "The Great Gatsby", Author: "Fitzgerald", Genre: "Classic", Status: entities.BookStatusAvailable}
	require.NoError(t, s.Apply(CreateBook(gatsby)))

	r1 := &entities.Reservation{BookID: dune.ID, UserID: alice.ID, ReservationDate: time.Now(), ValidUntil: time.Now().Add(time.Hour)}
	r2 := &entities.Reservation{BookID: gatsby.ID, UserID: bob.ID, ReservationDate: time.Now(), ValidUntil: time.Now().Add(time.Hour)}
	require.NoError(t, s.Apply(CreateReservation(r1)))
	require.NoError(t, s.Apply(CreateReservation(r2)))

	rows, err := s.ReservationRows(RowFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Dune", rows[0].Title)
	assert.Equal(t, "alice", rows[0].Username)

	byUser, err := s.ReservationRows(RowFilter{UserID: bob.ID})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "The Great Gatsby", byUser[0].Title)

	byUsername, err := s.ReservationRows(RowFilter{Username: "ali"})
	require.NoError(t, err)
	require.Len(t, byUsername, 1)
	assert.Equal(t, alice.ID, byUsername[0].UserID)
}

func TestStore_CheckoutRows_IncludesClosed(t *testing.T) {
	s, db, cleanup := setupTestDB(t)
	defer cleanup()

	alice := createUser(t, db, "alice", entities.RoleReader)
	book := createBook(t, s, "Dune")

	now := time.Now()
	open := &entities.Checkout{BookID: book.ID, UserID: alice.ID, StartTime: now}
	closed := &entities.Checkout{BookID: book.ID, UserID: alice.ID, StartTime: now.Add(-time.Hour), EndTime: &now}
	require.NoError(t, s.Apply(CreateCheckout(open)))
	require.NoError(t, s.Apply(CreateCheckout(closed)))

	rows, err := s.CheckoutRows(RowFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStore_Checkouts_SingleOpenPerBook(t *testing.T) {
	s, db, cleanup := setupTestDB(t)
	defer cleanup()

	alice := createUser(t, db, "alice", entities.RoleReader)
	bob := createUser(t, db, "bob", entities.RoleReader)
	book := createBook(t, s, "Dune")

	now := time.Now()
	first := &entities.Checkout{BookID: book.ID, UserID: alice.ID, StartTime: now}
	require.NoError(t, s.Apply(CreateCheckout(first)))

	// The partial unique index rejects a second open checkout for the book.
	second := &entities.Checkout{BookID: book.ID, UserID: bob.ID, StartTime: now}
	assert.Error(t, s.Apply(CreateCheckout(second)))

	// Closed rows do not count against the constraint.
	closed := &entities.Checkout{BookID: book.ID, UserID: bob.ID, StartTime: now.Add(-time.Hour), EndTime: &now}
	require.NoError(t, s.Apply(CreateCheckout(closed)))

	// Other books are unaffected.
	other := createBook(t, s, "Hyperion")
	require.NoError(t, s.Apply(CreateCheckout(&entities.Checkout{BookID: other.ID, UserID: bob.ID, StartTime: now})))

	open, err := s.OpenCheckout(book.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID)
}
