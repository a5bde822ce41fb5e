package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarium/internal/catalog"
	"github.com/mrlokans/librarium/internal/circulation"
	"github.com/mrlokans/librarium/internal/store"
)

// BooksController serves the catalog API: listing with filters, metadata
// CRUD, and retirement.
type BooksController struct {
	circulation *circulation.Service
	catalog     *catalog.Service
}

func NewBooksController(circ *circulation.Service, cat *catalog.Service) *BooksController {
	return &BooksController{
		circulation: circ,
		catalog:     cat,
	}
}

// BookRequest is the payload for creating or updating a book.
type BookRequest struct {
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	Genre           string `json:"genre" binding:"required"`
	Publisher       string `json:"publisher"`
	PublicationDate string `json:"publication_date"` // YYYY-MM-DD
}

func (r BookRequest) toInput() (catalog.BookInput, error) {
	input := catalog.BookInput{
		Title:     r.Title,
		Author:    r.Author,
		Genre:     r.Genre,
		Publisher: r.Publisher,
	}
	if r.PublicationDate != "" {
		date, err := time.Parse("2006-01-02", r.PublicationDate)
		if err != nil {
			return input, err
		}
		input.PublicationDate = date
	}
	return input, nil
}

// ListBooks returns the catalog, optionally filtered by title substring and
// genre. Listing is the read that sweeps expired reservations, so statuses
// are current as of the response.
func (bc *BooksController) ListBooks(c *gin.Context) {
	filter := store.BookFilter{
		Title: c.Query("title"),
		Genre: c.Query("genre"),
	}

	books, err := bc.circulation.ListBooks(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// ListGenres returns the distinct genres present in the catalog.
func (bc *BooksController) ListGenres(c *gin.Context) {
	genres, err := bc.circulation.Genres()
	if err != nil {
		respondInternalError(c, err, "list genres")
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// GetBook returns a single book by id.
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.circulation.GetBook(id)
	if err != nil {
		respondOperationError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// CreateBook adds a new book to the catalog.
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondBadRequest(c, "invalid publication_date, expected YYYY-MM-DD")
		return
	}

	book, err := bc.catalog.CreateBook(input)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	respondCreated(c, book)
}

// UpdateBook edits a book's descriptive fields. The edit is guarded by the
// book's version, so a concurrent lifecycle transition surfaces as 409.
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondBadRequest(c, "invalid publication_date, expected YYYY-MM-DD")
		return
	}

	book, err := bc.catalog.UpdateBook(id, input)
	if err != nil {
		respondOperationError(c, err, "update book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// RetireBook takes a book out of circulation: a hard delete when the book
// was never checked out, otherwise a permanent-unavailable marker that keeps
// the loan history intact.
func (bc *BooksController) RetireBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.circulation.Retire(id, GetUserID(c)); err != nil {
		respondOperationError(c, err, "retire book")
		return
	}

	c.Status(http.StatusNoContent)
}
