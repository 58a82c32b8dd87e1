package middleware

import (
	"strings"

	"github.com/NomadCrew/ap-workbench/config"
	"github.com/gin-gonic/gin"
)

// DocumentPathPrefix marks routes that stream source PDFs. The browser embeds
// those in a frame, so they get frame-ancestors instead of X-Frame-Options.
const DocumentPathPrefix = "/v1/documents/"

// SecurityHeadersMiddleware adds security-related HTTP headers to all responses.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	ancestors := frameAncestors(cfg.Server.AllowedOrigins)
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, DocumentPathPrefix) {
			c.Header("Content-Security-Policy", "frame-ancestors "+ancestors)
		} else {
			c.Header("X-Frame-Options", "DENY")
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// HSTS breaks plain-http local development
		if cfg.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

func frameAncestors(origins []string) string {
	if len(origins) == 0 || containsOrigin(origins, "*") {
		return "*"
	}
	return "'self' " + strings.Join(origins, " ")
}
