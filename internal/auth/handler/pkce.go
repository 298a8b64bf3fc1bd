package handler

import (
	"time"

	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	pkceCookieName = "__oauth_pkce"
	pkceTTL        = 5 * time.Minute
)

// issuePKCE creates an S256 verifier/challenge pair and keeps the
// verifier in a cookie for the callback.
func (h *Handler) issuePKCE(c *gin.Context) (verifier string, challenge string, err error) {
	verifier, err = utils.RandomString(32)
	if err != nil {
		return "", "", err
	}

	h.setFlowCookie(c, pkceCookieName, verifier, pkceTTL)
	return verifier, oauth2.S256ChallengeFromVerifier(verifier), nil
}

func pkceVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
