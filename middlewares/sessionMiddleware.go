package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/utils"
)

// SessionLookup resolves a session token to a username.
type SessionLookup func(ctx context.Context, token string) (username string, ok bool, err error)

// RedisSession reads the Token:<token> key written by the login service.
func RedisSession(ctx context.Context, token string) (string, bool, error) {
	return config.GetRedisValue(ctx, "Token:"+token)
}

// SessionMiddleware puts the username for the "token" header into the request
// context. Requests without a token pass through for RequireUser to reject.
func SessionMiddleware(lookup SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("token")
		if token == "" {
			c.Next()
			return
		}
		username, ok, err := lookup(c.Request.Context(), token)
		if err != nil {
			config.LoggerFromContext(c.Request.Context()).Errorf("session lookup failed: %v", err)
			abortWith(c, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		if !ok || username == "" {
			abortWith(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		c.Request = c.Request.WithContext(utils.SetUsernameInContext(ctx, username))
		c.Next()
	}
}

func abortWith(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": true, "status": status, "message": message})
}
