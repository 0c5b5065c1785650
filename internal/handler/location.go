package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mtolling/internal/domain"
	"mtolling/internal/positioning"
	"mtolling/internal/service"
)

// LocationHandler handles HTTP requests for the current location and
// accepts fixes from the host positioning subsystem.
type LocationHandler struct {
	tracker  *service.LocationTracker
	registry *positioning.Registry
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(tracker *service.LocationTracker, registry *positioning.Registry) *LocationHandler {
	return &LocationHandler{tracker: tracker, registry: registry}
}

// ProviderStateRequest is the HTTP request body for toggling a provider.
type ProviderStateRequest struct {
	Enabled bool `json:"enabled"`
}

// Current handles GET /v1/location
func (h *LocationHandler) Current(c *gin.Context) {
	fix := h.tracker.Current()
	if fix == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no location yet"})
		return
	}
	respondJSON(c, http.StatusOK, fix)
}

// PushFix handles POST /v1/location/fixes
func (h *LocationHandler) PushFix(c *gin.Context) {
	var fix domain.LocationFix
	if err := c.ShouldBindJSON(&fix); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if !fix.IsValid() {
		respondError(c, service.ErrInvalidLocation)
		return
	}

	delivered, err := h.registry.Push(fix)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusAccepted, gin.H{"delivered": delivered})
}

// SetProvider handles PUT /v1/location/providers/:name
func (h *LocationHandler) SetProvider(c *gin.Context) {
	var req ProviderStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.registry.SetEnabled(c.Param("name"), req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
