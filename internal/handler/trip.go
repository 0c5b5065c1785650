package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mtolling/internal/domain"
	"mtolling/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	poller        *service.TripPoller
	notifications *service.NotificationService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(poller *service.TripPoller, notifications *service.NotificationService) *TripHandler {
	return &TripHandler{poller: poller, notifications: notifications}
}

// TripListResponse is the HTTP response for the last known trips.
type TripListResponse struct {
	Status domain.PollerStatus `json:"status"`
	Trips  []domain.Trip       `json:"trips"`
}

// List handles GET /v1/trips
func (h *TripHandler) List(c *gin.Context) {
	respondJSON(c, http.StatusOK, TripListResponse{
		Status: h.poller.Status(),
		Trips:  h.poller.LastKnownTrips(),
	})
}

// Poll handles POST /v1/trips/poll and runs one cycle immediately.
func (h *TripHandler) Poll(c *gin.Context) {
	events, err := h.poller.PollOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"new_trips": events})
}

// Events handles GET /v1/trips/events?limit=N
func (h *TripHandler) Events(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}

	events, err := h.notifications.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"events": events})
}
