package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarium/internal/circulation"
	"github.com/mrlokans/librarium/internal/store"
)

// CheckoutsController serves the checkout API: converting reservations into
// loans, closing them on return, and the loan listings.
type CheckoutsController struct {
	circulation *circulation.Service
}

func NewCheckoutsController(circ *circulation.Service) *CheckoutsController {
	return &CheckoutsController{circulation: circ}
}

// ListCheckouts returns checkouts, open and closed, joined with book and
// user data. Readers see only their own loans.
func (cc *CheckoutsController) ListCheckouts(c *gin.Context) {
	filter := store.RowFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
	}
	if isLibrarian(c) {
		filter.Username = c.Query("username")
	} else {
		filter.UserID = GetUserID(c)
	}

	rows, err := cc.circulation.ListCheckouts(filter)
	if err != nil {
		respondInternalError(c, err, "list checkouts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkouts": rows, "count": len(rows)})
}

// GetCheckout returns a single checkout by id.
func (cc *CheckoutsController) GetCheckout(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	checkout, err := cc.circulation.GetCheckout(id)
	if err != nil {
		respondOperationError(c, err, "get checkout")
		return
	}

	if !isLibrarian(c) && checkout.UserID != GetUserID(c) {
		respondNotFound(c, "checkout")
		return
	}

	c.JSON(http.StatusOK, checkout)
}

// Checkout hands a reserved book to its holder: the reservation is consumed
// and an open checkout takes its place.
func (cc *CheckoutsController) Checkout(c *gin.Context) {
	reservationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	checkout, err := cc.circulation.Checkout(reservationID, GetUserID(c))
	if err != nil {
		respondOperationError(c, err, "checkout")
		return
	}

	respondCreated(c, checkout)
}

// Return closes an open checkout and puts the book back in circulation.
func (cc *CheckoutsController) Return(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	checkout, err := cc.circulation.Return(id, GetUserID(c))
	if err != nil {
		respondOperationError(c, err, "return")
		return
	}

	c.JSON(http.StatusOK, checkout)
}
