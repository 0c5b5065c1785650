package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mtolling/internal/network"
	"mtolling/internal/positioning"
	"mtolling/internal/remote"
	"mtolling/internal/repository"
	"mtolling/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	// UpstreamStatus is the status returned by the mTolling API, when there was one.
	UpstreamStatus int `json:"upstream_status,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	resp := ErrorResponse{Error: err.Error(), Kind: errorKind(err)}
	resp.UpstreamStatus = network.StatusCode(err)
	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service, network and repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case service.IsValidationError(err),
		errors.Is(err, positioning.ErrUnknownProvider):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized

	// Conflict errors
	case errors.Is(err, service.ErrAlreadyRunning),
		errors.Is(err, service.ErrTripMonitoringDisabled),
		errors.Is(err, positioning.ErrProviderDisabled):
		return http.StatusConflict

	// Upstream rejected the credentials
	case network.StatusCode(err) == http.StatusUnauthorized,
		network.StatusCode(err) == http.StatusForbidden:
		return http.StatusUnauthorized

	// Upstream failures
	case errors.Is(err, remote.ErrNoTokenInResponse),
		network.IsKind(err, network.KindProtocol),
		network.IsKind(err, network.KindParse),
		network.IsKind(err, network.KindTransport):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// errorKind classifies err for clients that render their own messages.
func errorKind(err error) string {
	switch {
	case service.IsValidationError(err):
		return "validation"
	case errors.Is(err, service.ErrNotAuthenticated):
		return "not_authenticated"
	case network.IsKind(err, network.KindTransport):
		return string(network.KindTransport)
	case network.IsKind(err, network.KindProtocol):
		return string(network.KindProtocol)
	case network.IsKind(err, network.KindParse):
		return string(network.KindParse)
	case network.IsKind(err, network.KindConfig):
		return string(network.KindConfig)
	}
	return ""
}
