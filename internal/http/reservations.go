package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarium/internal/auth"
	"github.com/mrlokans/librarium/internal/circulation"
	"github.com/mrlokans/librarium/internal/store"
)

// ReservationsController serves the reservation API: placing and cancelling
// holds, and the listings readers and librarians browse.
type ReservationsController struct {
	circulation *circulation.Service
}

func NewReservationsController(circ *circulation.Service) *ReservationsController {
	return &ReservationsController{circulation: circ}
}

// ReserveRequest is the payload for placing a hold.
type ReserveRequest struct {
	BookID uint `json:"book_id" binding:"required"`
	// UserID is honored only when authentication is disabled; with auth on,
	// the hold always belongs to the caller.
	UserID uint `json:"user_id"`
}

// ListReservations returns active reservations joined with book and user
// data. Readers see only their own holds; librarians see everything and may
// filter by title, author, and username. Listing sweeps expired reservations
// first.
func (rc *ReservationsController) ListReservations(c *gin.Context) {
	filter := store.RowFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
	}
	if isLibrarian(c) {
		filter.Username = c.Query("username")
	} else {
		filter.UserID = GetUserID(c)
	}

	rows, err := rc.circulation.ListReservations(filter)
	if err != nil {
		respondInternalError(c, err, "list reservations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": rows, "count": len(rows)})
}

// GetReservation returns a single reservation by id.
func (rc *ReservationsController) GetReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reservation, err := rc.circulation.GetReservation(id)
	if err != nil {
		respondOperationError(c, err, "get reservation")
		return
	}

	if !isLibrarian(c) && reservation.UserID != GetUserID(c) {
		respondNotFound(c, "reservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// Reserve places a hold on an available book for the calling reader.
func (rc *ReservationsController) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := GetUserID(c)
	if auth.GetAuthType(c) == auth.AuthTypeNone && req.UserID != 0 {
		userID = req.UserID
	}

	reservation, err := rc.circulation.Reserve(req.BookID, userID)
	if err != nil {
		respondOperationError(c, err, "reserve book")
		return
	}

	respondCreated(c, reservation)
}

// Unreserve cancels a hold. Readers may cancel only their own holds;
// librarians may cancel any.
func (rc *ReservationsController) Unreserve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if !isLibrarian(c) {
		reservation, err := rc.circulation.GetReservation(id)
		if err != nil {
			respondOperationError(c, err, "unreserve")
			return
		}
		if reservation.UserID != GetUserID(c) {
			respondForbidden(c, "reservation belongs to another reader")
			return
		}
	}

	if err := rc.circulation.Unreserve(id, GetUserID(c)); err != nil {
		respondOperationError(c, err, "unreserve")
		return
	}

	c.Status(http.StatusNoContent)
}
