// Package seed populates a fresh database with a starter catalog and two
// provisioned accounts, one per role, so the system is usable right after
// first start.
package seed

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarium/internal/auth"
	"github.com/mrlokans/librarium/internal/entities"
)

// ErrAlreadySeeded means both the catalog and the user table already hold
// data.
var ErrAlreadySeeded = errors.New("database already seeded")

// Result reports what was created, including the generated access tokens.
// Tokens are shown once at seed time and never again.
type Result struct {
	Books []entities.Book
	Users []SeededUser
}

// SeededUser pairs a created user with its plaintext access token.
type SeededUser struct {
	User  entities.User
	Token string
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func starterCatalog() []entities.Book {
	return []entities.Book{
		{
			Title:           "The Great Gatsby",
			Author:          "F. Scott Fitzgerald",
			Genre:           "Classic",
			Publisher:       "Scribner",
			PublicationDate: date(1925, time.April, 10),
			Status:          entities.BookStatusAvailable,
			Version:         1,
		},
		{
			Title:           "To Kill a Mockingbird",
			Author:          "Harper Lee",
			Genre:           "Classic",
			Publisher:       "J.B. Lippincott & Co.",
			PublicationDate: date(1960, time.July, 11),
			Status:          entities.BookStatusAvailable,
			Version:         1,
		},
		{
			Title:           "1984",
			Author:          "George Orwell",
			Genre:           "Dystopian",
			Publisher:       "Secker & Warburg",
			PublicationDate: date(1949, time.June, 8),
			Status:          entities.BookStatusAvailable,
			Version:         1,
		},
		{
			Title:           "Pride and Prejudice",
			Author:          "Jane Austen",
			Genre:           "Romance",
			Publisher:       "T. Egerton",
			PublicationDate: date(1813, time.January, 28),
			Status:          entities.BookStatusAvailable,
			Version:         1,
		},
		{
			Title:           "The Catcher in the Rye",
			Author:          "J.D. Salinger",
			Genre:           "Classic",
			Publisher:       "Little, Brown and Company",
			PublicationDate: date(1951, time.July, 16),
			Status:          entities.BookStatusAvailable,
			Version:         1,
		},
	}
}

// Run seeds the catalog and the two starter accounts. It is idempotent at
// the collection level: a non-empty books or users table is left untouched.
func Run(db *gorm.DB) (*Result, error) {
	result := &Result{}

	var bookCount int64
	if err := db.Model(&entities.Book{}).Count(&bookCount).Error; err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	if bookCount == 0 {
		books := starterCatalog()
		if err := db.Create(&books).Error; err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		result.Books = books
	}

	var userCount int64
	if err := db.Model(&entities.User{}).Count(&userCount).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if userCount == 0 {
		users := []struct {
			username string
			email    string
			role     entities.UserRole
		}{
			{"reader", "reader@example.com", entities.RoleReader},
			{"librarian", "librarian@example.com", entities.RoleLibrarian},
		}

		for _, u := range users {
			token, err := auth.GenerateToken()
			if err != nil {
				return nil, fmt.Errorf("generate token for %s: %w", u.username, err)
			}
			user := entities.User{
				Username: u.username,
				Email:    u.email,
				Role:     u.role,
				Token:    token,
			}
			if err := db.Create(&user).Error; err != nil {
				return nil, fmt.Errorf("seed user %s: %w", u.username, err)
			}
			result.Users = append(result.Users, SeededUser{User: user, Token: token})
		}
	}

	if len(result.Books) == 0 && len(result.Users) == 0 {
		return nil, ErrAlreadySeeded
	}
	return result, nil
}
