package app

import (
	"context"
	"net/http"
	"sort"

	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

type checkFunc func(ctx context.Context) error

// healthHandler reports 200 when every dependency answers and 503 with
// the failing names otherwise.
func healthHandler(checks map[string]checkFunc) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		var failing []string
		for _, name := range names {
			if err := checks[name](c.Request.Context()); err != nil {
				logger.Warn("health check failed", map[string]any{
					"dependency": name,
					"error":      err.Error(),
				})
				failing = append(failing, name)
			}
		}

		if len(failing) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failing": failing})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
