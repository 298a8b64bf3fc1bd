package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/auth/credentials"
	"storefront/internal/auth/provider"
	"storefront/internal/auth/resolver"
	"storefront/internal/authstate"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
)

// CredentialService is the email/password half of authentication.
type CredentialService interface {
	Register(ctx context.Context, email, password string) (*credentials.Account, error)
	Authenticate(ctx context.Context, email, password string) (*credentials.Account, error)
}

// StateHub publishes auth-state changes and hands out per-session streams.
// *authstate.Hub implements it.
type StateHub interface {
	Publish(ctx context.Context, sessionID string, user *authstate.User) error
	Stream(sessionID string) authstate.Stream
}

// Options tune session issuance. SessionTTL bounds a session's total
// lifetime; IdleTTL is the inactivity window, slid forward on use.
// Closing Done ends every open auth stream.
type Options struct {
	Cookie     session.CookieOptions
	SessionTTL time.Duration
	IdleTTL    time.Duration
	Done       <-chan struct{}
}

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	resolver     resolver.Resolver
	credentials  CredentialService
	state        StateHub
	opts         Options
	now          func() time.Time
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	resolver resolver.Resolver,
	credentialService CredentialService,
	state StateHub,
	opts Options,
) *Handler {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.IdleTTL <= 0 || opts.IdleTTL > opts.SessionTTL {
		opts.IdleTTL = opts.SessionTTL
	}
	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		resolver:     resolver,
		credentials:  credentialService,
		state:        state,
		opts:         opts,
		now:          time.Now,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, auth *middleware.AuthMiddleware) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)

	r.GET("/api/auth/me", middleware.GinAttach(auth), h.Me)
	r.GET("/api/auth/stream", h.Stream)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state, err := h.issueState(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}
	_, codeChallenge, err := h.issuePKCE(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}
	h.clearFlowCookie(c, stateCookieName)

	// provider-side failure, e.g. the user cancelled consent
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oidc callback missing code and error", map[string]any{
			"provider": providerName,
		})
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := pkceVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}
	h.clearFlowCookie(c, pkceCookieName)

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Warn("oidc code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	userID, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, resolver.ErrUnverifiedEmail) {
			c.JSON(http.StatusForbidden, gin.H{"error": "email not verified"})
			return
		}
		logger.Error("identity resolution failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	if _, err := h.startSession(c, userID, identity.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	logger.Info("login succeeded", map[string]any{
		"user_id":  userID,
		"provider": providerName,
		"ip":       c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
	})
}

// Logout ends the session. It is idempotent.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID := session.IDFromRequest(c.Request); sessionID != "" {
		h.endSession(c.Request.Context(), sessionID)
		logger.Info("logout", map[string]any{"ip": c.ClientIP()})
	}

	session.ClearCookie(c.Writer, h.opts.Cookie)
	c.Status(http.StatusNoContent)
}

// Me reports the user attached to the request, or null.
func (h *Handler) Me(c *gin.Context) {
	user, _ := middleware.UserFromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user": user})
}
