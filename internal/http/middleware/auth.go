package middleware

import (
	"net/http"
	"strings"

	"shiptrack/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
	actorKey    = "actor"
)

// TokenParser turns a bearer token into the acting user.
type TokenParser interface {
	ParseToken(raw string) (domain.RequestContext, error)
}

// RequireAuth rejects requests without a valid bearer token with 401. On
// success the actor is stored on the gin context and on the request context.
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		actor, err := parser.ParseToken(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		actor.RequestID = GetRequestID(c)

		c.Set(userIDKey, actor.UserID)
		c.Set(userRoleKey, actor.Role)
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// Actor returns the authenticated actor set by RequireAuth.
func Actor(c *gin.Context) (domain.RequestContext, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.RequestContext{}, false
	}
	actor, ok := v.(domain.RequestContext)
	return actor, ok
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"code":       code,
		"message":    msg,
		"request_id": GetRequestID(c),
	})
}
