package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/student-records-api/internal/models"
	"github.com/campushq/student-records-api/internal/service"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
	"github.com/campushq/student-records-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate user
// @Description Verify username and password, returning a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Validate godoc
// @Summary Validate a session token
// @Description Always responds 200; an invalid token yields valid=false
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ValidateTokenRequest true "Token payload"
// @Success 200 {object} response.Envelope
// @Router /auth/validate [post]
func (h *AuthHandler) Validate(c *gin.Context) {
	var req models.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, http.StatusOK, models.ValidateTokenResponse{Valid: false})
		return
	}

	claims, err := h.service.ValidateToken(req.Token)
	if err != nil {
		response.JSON(c, http.StatusOK, models.ValidateTokenResponse{Valid: false})
		return
	}

	response.JSON(c, http.StatusOK, models.ValidateTokenResponse{Valid: true, Username: claims.Username})
}

// Logout godoc
// @Summary Logout
// @Description Acknowledge the client-side session discard; no server state exists
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.service.Logout()
	response.JSON(c, http.StatusOK, gin.H{"message": "logged out successfully"})
}
