package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"commerce-service/internal/middleware"
	"commerce-service/internal/models"
	"commerce-service/internal/services"
)

// AccountHandler handles registration, login, the current user and password resets
type AccountHandler struct {
	accounts *services.AccountService
	logger   *logrus.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *services.AccountService, logger *logrus.Logger) *AccountHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &AccountHandler{accounts: accounts, logger: logger}
}

// Register creates an account
// @Summary Register a user
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration"
// @Success 201 {object} models.DetailsResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/register [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := h.accounts.Register(c.Request.Context(), req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, models.DetailsResponse{Details: "User Registered"})
}

// Login issues an access token
// @Summary Log in
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CurrentUser returns the authenticated user
// @Summary Current user
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Router /api/me [get]
func (h *AccountHandler) CurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication credentials were not provided"})
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// UpdateUser updates the authenticated user
// @Summary Update current user
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateUserRequest true "User"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/me/update [put]
func (h *AccountHandler) UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.accounts.UpdateUser(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// ForgotPassword emails a password reset token
// @Summary Request a password reset
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "Email"
// @Success 200 {object} models.DetailsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/forgot-password [post]
func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.DetailsResponse{
		Details: fmt.Sprintf("Password reset email sent to: %s", req.Email),
	})
}

// ResetPassword consumes a reset token
// @Summary Reset password
// @Tags accounts
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body models.ResetPasswordRequest true "New password"
// @Success 200 {object} models.DetailsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/reset-password/{token} [post]
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.DetailsResponse{Details: "Password is now updated"})
}
