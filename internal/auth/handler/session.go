package handler

import (
	"context"

	"storefront/internal/authstate"
	"storefront/internal/logger"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
)

// startSession issues a fresh session for userID and announces it on the
// session's auth-state channel. A session already carried by the request
// is ended first so ids are never reused across logins.
func (h *Handler) startSession(c *gin.Context, userID, email string) (string, error) {
	ctx := c.Request.Context()

	if previous := session.IDFromRequest(c.Request); previous != "" {
		h.endSession(ctx, previous)
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		return "", err
	}

	now := h.now()
	absolute := now.Add(h.opts.SessionTTL)

	sess := session.Session{
		SessionID:         sessionID,
		UserID:            userID,
		Email:             email,
		CreatedAt:         now,
		AbsoluteExpiresAt: absolute,
		ExpiresAt:         session.NextExpiry(now, h.opts.IdleTTL, absolute),
	}
	if err := h.sessionStore.Create(ctx, sess); err != nil {
		logger.Error("session create failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return "", err
	}

	// the cookie outlives idle periods; the store enforces them
	session.SetCookie(c.Writer, sessionID, absolute, h.opts.Cookie)
	h.publish(ctx, sessionID, &authstate.User{ID: userID, Email: email})

	return sessionID, nil
}

// endSession deletes the session (best-effort) and reports sign-out.
func (h *Handler) endSession(ctx context.Context, sessionID string) {
	if err := h.sessionStore.Delete(ctx, sessionID); err != nil {
		logger.Warn("session delete failed", map[string]any{"error": err.Error()})
	}
	h.publish(ctx, sessionID, nil)
}

func (h *Handler) publish(ctx context.Context, sessionID string, user *authstate.User) {
	if err := h.state.Publish(ctx, sessionID, user); err != nil {
		logger.Warn("auth state publish failed", map[string]any{
			"signed_in": user != nil,
			"error":     err.Error(),
		})
	}
}
