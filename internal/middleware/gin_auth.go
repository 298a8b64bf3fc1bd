package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinAttach adapts AuthMiddleware.Attach to gin.
func GinAttach(auth *AuthMiddleware) gin.HandlerFunc {
	return bridge(auth.Attach)
}

// GinRequireAuth adapts AuthMiddleware.RequireAuth to gin.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return bridge(auth.RequireAuth)
}

// bridge runs a net/http middleware inside a gin chain. If the middleware
// does not call its next handler the gin chain is aborted.
func bridge(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}
