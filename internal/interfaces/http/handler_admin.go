package http

import (
	"log/slog"
	"net/http"

	"supportdesk/internal/entities"
	"supportdesk/internal/usecases"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	auth   *usecases.AuthUsecase
	logger *slog.Logger
}

func NewAdminHandler(auth *usecases.AuthUsecase, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{auth: auth, logger: logger}
}

// GetStats returns dashboard account statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.auth.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAllUsers returns list of all users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser adds an operator account regardless of ALLOW_REGISTRATION.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Role == "" {
		req.Role = entities.RoleUser
	}
	user, err := h.auth.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUserStatus enables/disables a user account
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		IsActive *bool `json:"is_active"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	if payload.IsActive == nil {
		badRequest(c, "is_active is required")
		return
	}

	if err := h.auth.SetUserStatus(c.Request.Context(), currentUserID(c), userID, *payload.IsActive); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "is_active": *payload.IsActive})
}
