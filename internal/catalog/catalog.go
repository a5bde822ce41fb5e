// Package catalog manages book metadata. It is a collaborator of the
// circulation core: it creates books (always Available) and edits their
// descriptive fields, but never drives lifecycle transitions — those belong
// to the circulation engine, including retirement.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/librarium/internal/entities"
	"github.com/mrlokans/librarium/internal/store"
)

var (
	// ErrNotFound means the book does not exist.
	ErrNotFound = errors.New("book not found")

	// ErrConflict means a metadata edit lost its version check to a
	// concurrent write.
	ErrConflict = errors.New("book modified concurrently")
)

// BookInput carries the descriptive fields of a book.
type BookInput struct {
	Title           string
	Author          string
	Genre           string
	Publisher       string
	PublicationDate time.Time
}

func (in BookInput) validate() error {
	if in.Title == "" {
		return errors.New("title is required")
	}
	if in.Author == "" {
		return errors.New("author is required")
	}
	if in.Genre == "" {
		return errors.New("genre is required")
	}
	return nil
}

type Service struct {
	store *store.Store
}

func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// CreateBook adds a new book to the catalog in the Available state.
func (s *Service) CreateBook(input BookInput) (*entities.Book, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	book := &entities.Book{
		Title:           input.Title,
		Author:          input.Author,
		Genre:           input.Genre,
		Publisher:       input.Publisher,
		PublicationDate: input.PublicationDate,
		Status:          entities.BookStatusAvailable,
	}
	if err := s.store.Apply(store.CreateBook(book)); err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBook replaces a book's descriptive fields. The status is read and
// written back unchanged; a concurrent lifecycle transition therefore aborts
// the edit with ErrConflict instead of silently reverting the status.
func (s *Service) UpdateBook(id uint, input BookInput) (*entities.Book, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	book, err := s.store.GetBook(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	book.Title = input.Title
	book.Author = input.Author
	book.Genre = input.Genre
	book.Publisher = input.Publisher
	book.PublicationDate = input.PublicationDate

	if err := s.store.Apply(store.UpdateBook(book)); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("book %d: %w", id, ErrConflict)
		}
		return nil, err
	}
	book.Version++
	return book, nil
}
