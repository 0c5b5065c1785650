package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mtolling/internal/service"
)

// TrackingHandler handles lifecycle and settings requests.
type TrackingHandler struct {
	supervisor *service.Supervisor
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(supervisor *service.Supervisor) *TrackingHandler {
	return &TrackingHandler{supervisor: supervisor}
}

// SettingsRequest is the HTTP request body for updating flags. Omitted fields are unchanged.
type SettingsRequest struct {
	AutoStartEnabled      *bool `json:"auto_start_enabled"`
	TripMonitoringEnabled *bool `json:"trip_monitoring_enabled"`
}

// BootRequest is the HTTP request body for a boot trigger.
type BootRequest struct {
	Action string `json:"action"`
}

// Start handles POST /v1/tracking/start
func (h *TrackingHandler) Start(c *gin.Context) {
	if err := h.supervisor.StartTracking(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.Status(c)
}

// Stop handles POST /v1/tracking/stop
func (h *TrackingHandler) Stop(c *gin.Context) {
	h.supervisor.StopTracking(c.Request.Context())
	h.Status(c)
}

// Status handles GET /v1/tracking/status
func (h *TrackingHandler) Status(c *gin.Context) {
	status, err := h.supervisor.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, status)
}

// UpdateSettings handles PUT /v1/settings
func (h *TrackingHandler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if req.AutoStartEnabled != nil {
		if err := h.supervisor.SetAutoStart(ctx, *req.AutoStartEnabled); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.TripMonitoringEnabled != nil {
		if err := h.supervisor.SetTripMonitoring(ctx, *req.TripMonitoringEnabled); err != nil {
			respondError(c, err)
			return
		}
	}
	h.Status(c)
}

// Boot handles POST /v1/lifecycle/boot
func (h *TrackingHandler) Boot(c *gin.Context) {
	var req BootRequest
	if err := c.ShouldBindJSON(&req); err != nil || !service.IsBootAction(req.Action) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unrecognised boot action"})
		return
	}

	started, err := h.supervisor.OnBoot(c.Request.Context(), req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"started": started})
}
