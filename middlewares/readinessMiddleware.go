package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dependency is a backing service that must be connected before requests are
// served.
type Dependency struct {
	Name  string
	Ready func() bool
}

// Readiness answers /healthz directly and rejects every other request with
// 503 until all deps report ready.
func Readiness(deps ...Dependency) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		for _, d := range deps {
			if !d.Ready() {
				abortWith(c, http.StatusServiceUnavailable, d.Name+" not ready")
				return
			}
		}
		c.Next()
	}
}
