package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/response"
)

// AuthHandler manages the local account lifecycle: registration, login,
// refresh, email verification and password reset.
type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=63"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"first_name" validate:"max=63"`
	LastName    string `json:"last_name" validate:"max=63"`
	IsOrganizer bool   `json:"is_organizer"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Register(requestContext(c), services.RegisterInput{
		Username:    strings.TrimSpace(req.Username),
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		IsOrganizer: req.IsOrganizer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/token
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.accounts.Login(requestContext(c), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.accounts.RefreshAccessToken(requestContext(c), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, pair)
}

// GET /api/auth/verify-email/:token
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	if err := h.accounts.VerifyEmail(requestContext(c), token); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Email verified"})
}

// GET /api/auth/verify-token/:token
//
// Reports which email address an action token belongs to without consuming
// it. Frontends use this to prefill the reset form.
func (h *AuthHandler) VerifyActionToken(c *gin.Context) {
	email, err := h.accounts.InspectActionToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"email": email})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	delivered, err := h.accounts.ResendVerification(requestContext(c), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The payload is identical whether or not the address exists so the
	// endpoint cannot be used to probe for accounts.
	_ = delivered
	response.Success(c, http.StatusOK, gin.H{"message": "If the account exists, a verification email has been sent"})
}

// POST /api/auth/password-reset/request
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	delivered, err := h.accounts.RequestPasswordReset(requestContext(c), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	_ = delivered
	response.Success(c, http.StatusOK, gin.H{"message": "If the account exists, a password reset email has been sent"})
}

type confirmResetRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// POST /api/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req confirmResetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ConfirmPasswordReset(requestContext(c), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Password updated"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	current, err := h.accounts.CurrentUser(requestContext(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, current)
}
