package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/portal_backend/utils"
)

// BearerToken copies "Authorization: Bearer <t>" into the token header when
// the client did not send one.
func BearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("token") == "" {
			auth := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				if token := strings.TrimSpace(auth[7:]); token != "" {
					c.Request.Header.Set("token", token)
				}
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests that SessionMiddleware did not authenticate.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := utils.GetUsernameFromContext(c.Request.Context())
		if !ok || strings.TrimSpace(username) == "" {
			abortWith(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

// CorrelationId tags the request context with x-correlation-id or a new uuid.
func CorrelationId(newId func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = newId()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Header("x-correlation-id", cid)
		c.Next()
	}
}
