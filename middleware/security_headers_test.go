package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/ap-workbench/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		environment  config.Environment
		expectedHSTS string
	}{
		{name: "development has no HSTS", environment: config.EnvDevelopment},
		{name: "production sets HSTS", environment: config.EnvProduction, expectedHSTS: "max-age=31536000; includeSubDomains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Server: config.ServerConfig{Environment: tt.environment, Port: "8080"}}

			router := gin.New()
			router.Use(SecurityHeadersMiddleware(cfg))
			router.GET("/v1/sessions/:sid", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
			assert.Equal(t, tt.expectedHSTS, w.Header().Get("Strict-Transport-Security"))
			assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		})
	}
}

func TestSecurityHeadersMiddleware_DocumentsMayBeFramed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Server: config.ServerConfig{
		Environment:    config.EnvDevelopment,
		AllowedOrigins: []string{"http://localhost:5173"},
	}}
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(cfg))
	router.GET("/v1/documents/:handle", func(c *gin.Context) { c.String(http.StatusOK, "pdf") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents/h-1", nil))

	assert.Empty(t, w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "frame-ancestors 'self' http://localhost:5173", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestFrameAncestors(t *testing.T) {
	assert.Equal(t, "*", frameAncestors(nil))
	assert.Equal(t, "*", frameAncestors([]string{"*"}))
	assert.Equal(t, "'self' https://a.test https://b.test", frameAncestors([]string{"https://a.test", "https://b.test"}))
}
