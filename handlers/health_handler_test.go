package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/NomadCrew/ap-workbench/types"
	"github.com/stretchr/testify/assert"
)

type stubHealth struct {
	status types.HealthStatus
}

func (s stubHealth) CheckHealth(ctx context.Context) types.HealthCheck {
	return types.HealthCheck{Status: s.status, Components: map[string]types.HealthComponent{}}
}

func TestHealthHandler(t *testing.T) {
	for _, tc := range []struct {
		status    types.HealthStatus
		readiness int
	}{
		{types.HealthStatusUp, http.StatusOK},
		{types.HealthStatusDegraded, http.StatusOK},
		{types.HealthStatusDown, http.StatusServiceUnavailable},
	} {
		t.Run(string(tc.status), func(t *testing.T) {
			h := NewHealthHandler(stubHealth{status: tc.status})
			r := newTestRouter()
			r.GET("/health", h.DetailedHealth)
			r.GET("/health/liveness", h.LivenessCheck)
			r.GET("/health/readiness", h.ReadinessCheck)

			assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/health", nil).Code)
			assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/health/liveness", nil).Code)
			assert.Equal(t, tc.readiness, performRequest(r, http.MethodGet, "/health/readiness", nil).Code)
		})
	}
}
