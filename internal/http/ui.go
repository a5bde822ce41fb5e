package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarium/internal/catalog"
	"github.com/mrlokans/librarium/internal/circulation"
	"github.com/mrlokans/librarium/internal/store"
)

// UIController serves the interactive pages. Lifecycle actions are plain
// form posts; when an action loses a race the user lands back on the listing
// with the fresh state and an error banner, and decides themselves whether
// to try again.
type UIController struct {
	circulation *circulation.Service
	catalog     *catalog.Service
}

func NewUIController(circ *circulation.Service, cat *catalog.Service) *UIController {
	return &UIController{
		circulation: circ,
		catalog:     cat,
	}
}

// uiErrorMessage renders an operation error as a banner message.
func uiErrorMessage(err error) string {
	switch {
	case errors.Is(err, circulation.ErrEntityGone):
		return "That book is no longer in the catalog."
	case errors.Is(err, circulation.ErrRaceLost):
		return "Someone else got there first. Review the current state and try again if it still applies."
	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, catalog.ErrConflict):
		return "The record changed while you were looking at it. Please try again."
	case errors.Is(err, circulation.ErrInvalidTransition):
		return "That action is not possible in the book's current state."
	case errors.Is(err, circulation.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return "The record was not found."
	default:
		return "Something went wrong: " + err.Error()
	}
}

// redirectWithError sends the browser back to a listing page carrying the
// error banner.
func redirectWithError(c *gin.Context, path string, err error) {
	c.Redirect(http.StatusSeeOther, path+"?error="+url.QueryEscape(uiErrorMessage(err)))
}

// BooksPage renders the catalog with search filters and per-status actions.
func (controller *UIController) BooksPage(c *gin.Context) {
	filter := store.BookFilter{
		Title: c.Query("title"),
		Genre: c.Query("genre"),
	}

	books, err := controller.circulation.ListBooks(filter)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading books: %s", err.Error())
		return
	}

	genres, err := controller.circulation.Genres()
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading genres: %s", err.Error())
		return
	}

	c.HTML(http.StatusOK, "books.html", gin.H{
		"Title":       "Catalog",
		"Books":       books,
		"Genres":      genres,
		"FilterTitle": filter.Title,
		"FilterGenre": filter.Genre,
		"Error":       c.Query("error"),
		"Auth":        GetAuthTemplateData(c),
	})
}

// NewBookPage renders the empty book form.
func (controller *UIController) NewBookPage(c *gin.Context) {
	c.HTML(http.StatusOK, "book_form.html", gin.H{
		"Title":  "Add Book",
		"Action": "/ui/books",
		"Error":  c.Query("error"),
		"Auth":   GetAuthTemplateData(c),
	})
}

// CreateBook handles the new-book form submission.
func (controller *UIController) CreateBook(c *gin.Context) {
	input, err := bookInputFromForm(c)
	if err != nil {
		redirectWithError(c, "/ui/books/new", err)
		return
	}

	if _, err := controller.catalog.CreateBook(input); err != nil {
		redirectWithError(c, "/ui/books/new", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// EditBookPage renders the edit form prefilled with the book's current
// fields.
func (controller *UIController) EditBookPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.circulation.GetBook(id)
	if err != nil {
		redirectWithError(c, "/", err)
		return
	}

	c.HTML(http.StatusOK, "book_form.html", gin.H{
		"Title":  "Edit Book",
		"Action": "/ui/books/" + c.Param("id") + "/edit",
		"Book":   book,
		"Error":  c.Query("error"),
		"Auth":   GetAuthTemplateData(c),
	})
}

// UpdateBook handles the edit form submission.
func (controller *UIController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	input, err := bookInputFromForm(c)
	if err != nil {
		redirectWithError(c, "/ui/books/"+c.Param("id")+"/edit", err)
		return
	}

	if _, err := controller.catalog.UpdateBook(id, input); err != nil {
		redirectWithError(c, "/ui/books/"+c.Param("id")+"/edit", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// Reserve handles the reserve button on the catalog page.
func (controller *UIController) Reserve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.circulation.Reserve(id, GetUserID(c)); err != nil {
		redirectWithError(c, "/", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/reservations")
}

// RetirePage renders the confirmation page before taking a book out of
// circulation.
func (controller *UIController) RetirePage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.circulation.GetBook(id)
	if err != nil {
		redirectWithError(c, "/", err)
		return
	}

	c.HTML(http.StatusOK, "book_retire.html", gin.H{
		"Title": "Retire Book",
		"Book":  book,
		"Error": c.Query("error"),
		"Auth":  GetAuthTemplateData(c),
	})
}

// Retire handles the confirmed retirement.
func (controller *UIController) Retire(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.circulation.Retire(id, GetUserID(c)); err != nil {
		redirectWithError(c, "/", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// ReservationsPage lists active holds. Readers see their own; librarians see
// all with filters.
func (controller *UIController) ReservationsPage(c *gin.Context) {
	filter := store.RowFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
	}
	if isLibrarian(c) {
		filter.Username = c.Query("username")
	} else {
		filter.UserID = GetUserID(c)
	}

	rows, err := controller.circulation.ListReservations(filter)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading reservations: %s", err.Error())
		return
	}

	c.HTML(http.StatusOK, "reservations.html", gin.H{
		"Title":        "Reservations",
		"Reservations": rows,
		"Now":          time.Now(),
		"Error":        c.Query("error"),
		"Auth":         GetAuthTemplateData(c),
	})
}

// CheckoutReservation hands the book to the reservation holder.
func (controller *UIController) CheckoutReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.circulation.Checkout(id, GetUserID(c)); err != nil {
		redirectWithError(c, "/reservations", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/checkouts")
}

// CancelReservation cancels a hold from the reservations page.
func (controller *UIController) CancelReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if !isLibrarian(c) {
		reservation, err := controller.circulation.GetReservation(id)
		if err != nil {
			redirectWithError(c, "/reservations", err)
			return
		}
		if reservation.UserID != GetUserID(c) {
			c.String(http.StatusForbidden, "reservation belongs to another reader")
			return
		}
	}

	if err := controller.circulation.Unreserve(id, GetUserID(c)); err != nil {
		redirectWithError(c, "/reservations", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/reservations")
}

// CheckoutsPage lists loans, open and closed.
func (controller *UIController) CheckoutsPage(c *gin.Context) {
	filter := store.RowFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
	}
	if isLibrarian(c) {
		filter.Username = c.Query("username")
	} else {
		filter.UserID = GetUserID(c)
	}

	rows, err := controller.circulation.ListCheckouts(filter)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading checkouts: %s", err.Error())
		return
	}

	c.HTML(http.StatusOK, "checkouts.html", gin.H{
		"Title":     "Checkouts",
		"Checkouts": rows,
		"Error":     c.Query("error"),
		"Auth":      GetAuthTemplateData(c),
	})
}

// ReturnCheckout closes an open loan from the checkouts page.
func (controller *UIController) ReturnCheckout(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.circulation.Return(id, GetUserID(c)); err != nil {
		redirectWithError(c, "/checkouts", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/checkouts")
}

// bookInputFromForm builds a catalog input from the book form fields.
func bookInputFromForm(c *gin.Context) (catalog.BookInput, error) {
	input := catalog.BookInput{
		Title:     c.PostForm("title"),
		Author:    c.PostForm("author"),
		Genre:     c.PostForm("genre"),
		Publisher: c.PostForm("publisher"),
	}
	if dateStr := c.PostForm("publication_date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return input, errors.New("invalid publication date, expected YYYY-MM-DD")
		}
		input.PublicationDate = date
	}
	return input, nil
}
