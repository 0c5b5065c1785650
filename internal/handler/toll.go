package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mtolling/internal/domain"
	"mtolling/internal/service"
)

// TollHandler handles HTTP requests for toll points.
type TollHandler struct {
	tolls  *service.TollCache
	tokens service.TokenSource
}

// NewTollHandler creates a new TollHandler.
func NewTollHandler(tolls *service.TollCache, tokens service.TokenSource) *TollHandler {
	return &TollHandler{tolls: tolls, tokens: tokens}
}

// TollListResponse is the HTTP response for the toll list.
type TollListResponse struct {
	Count int                `json:"count"`
	Tolls []domain.TollPoint `json:"tolls"`
}

// List handles GET /v1/tolls?refresh=true
func (h *TollHandler) List(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	token, _ := h.tokens.ValidToken(c.Request.Context())

	points, err := h.tolls.GetTollPoints(c.Request.Context(), token, refresh)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, TollListResponse{Count: len(points), Tolls: points})
}

// Nearby handles GET /v1/tolls/nearby?lat=..&lng=..&radius_km=..
func (h *TollHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "5"), 64)
	if err != nil || radius <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "radius_km must be positive"})
		return
	}

	points, err := h.tolls.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"count": len(points), "tolls": points})
}
