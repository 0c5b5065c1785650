package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mtolling/internal/service"
)

// AuthHandler handles HTTP requests for the session.
type AuthHandler struct {
	authService *service.AuthService
	supervisor  *service.Supervisor
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, supervisor *service.Supervisor) *AuthHandler {
	return &AuthHandler{authService: authService, supervisor: supervisor}
}

// LoginRequest is the HTTP request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the HTTP response for a successful login.
type LoginResponse struct {
	Email     string `json:"email"`
	Scheme    string `json:"scheme"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// MeResponse describes the current session.
type MeResponse struct {
	LoggedIn bool   `json:"logged_in"`
	Email    string `json:"email,omitempty"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.supervisor.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := LoginResponse{Email: req.Email, Scheme: token.Scheme}
	if !token.IssuedAt.IsZero() {
		resp.IssuedAt = token.IssuedAt.Format(time.RFC3339)
	}
	if token.ExpiresAt != nil {
		resp.ExpiresAt = token.ExpiresAt.Format(time.RFC3339)
	}
	respondJSON(c, http.StatusOK, resp)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.supervisor.OnLogout(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetCurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := MeResponse{LoggedIn: h.authService.IsLoggedIn(c.Request.Context())}
	if user != nil {
		resp.Email = user.Email
	}
	respondJSON(c, http.StatusOK, resp)
}
