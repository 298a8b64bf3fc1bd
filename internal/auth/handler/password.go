package handler

import (
	"errors"
	"net/http"

	"storefront/internal/auth/credentials"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return req, false
	}
	return req, true
}

// Register creates an email/password account and signs it in.
func (h *Handler) Register(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	account, err := h.credentials.Register(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrAlreadyRegistered):
		c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		return
	case errors.Is(err, credentials.ErrInvalidEmail),
		errors.Is(err, credentials.ErrPasswordTooShort),
		errors.Is(err, credentials.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		logger.Error("register failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	h.signIn(c, account, http.StatusCreated, "registered")
}

// Login checks an email/password pair and signs the account in.
func (h *Handler) Login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	account, err := h.credentials.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// unknown email and wrong password look the same to the client
		if !errors.Is(err, credentials.ErrInvalidCredentials) {
			logger.Error("authenticate failed", map[string]any{"error": err.Error()})
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.signIn(c, account, http.StatusOK, "logged_in")
}

func (h *Handler) signIn(c *gin.Context, account *credentials.Account, status int, label string) {
	if _, err := h.startSession(c, account.UserID, account.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}
	c.JSON(status, gin.H{"status": label})
}
