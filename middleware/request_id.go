package middleware

import (
	"time"

	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the key used to store the request ID in the gin context
	RequestIDKey = "request_id"
	// SessionIDKey holds the validated workbench session ID for logging.
	SessionIDKey = "session_id"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Proxies may already have assigned one
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// RequestLogger writes one line per request. The websocket upgrade and
// document streams log their own lifecycle, so only status and latency go here.
func RequestLogger() gin.HandlerFunc {
	log := logger.GetLogger().Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"requestID", c.GetString(RequestIDKey),
		}
		if sid := c.GetString(SessionIDKey); sid != "" {
			fields = append(fields, "sessionID", sid)
		}

		switch {
		case status >= 500:
			log.Errorw("Request failed", fields...)
		case status >= 400:
			log.Warnw("Request rejected", fields...)
		default:
			log.Debugw("Request served", fields...)
		}
	}
}
