package middleware

import (
	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequireSessionID rejects routes whose :sid is not a UUID and records it for logging.
func RequireSessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.Param("sid")
		if _, err := uuid.Parse(sid); err != nil {
			_ = c.Error(apperrors.ValidationFailed("invalid session ID", "session ID must be a UUID"))
			c.Abort()
			return
		}
		c.Set(SessionIDKey, sid)
		c.Next()
	}
}
