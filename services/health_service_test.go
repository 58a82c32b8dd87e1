package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/ap-workbench/types"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err   error
	delay time.Duration
}

func (s stubPinger) Ping(ctx context.Context) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.err
}

func TestNewHealthService(t *testing.T) {
	service := NewHealthService(stubPinger{}, nil, "1.0.0")

	assert.NotNil(t, service)
	assert.Equal(t, "1.0.0", service.version)
	assert.NotNil(t, service.log)
	assert.True(t, time.Since(service.startTime) < time.Second)
}

func TestHealthService_CheckHealth(t *testing.T) {
	tests := []struct {
		name           string
		backendErr     error
		redis          bool
		setupRedis     func(redismock.ClientMock)
		expectedStatus types.HealthStatus
		expectedComps  map[string]types.HealthStatus
	}{
		{
			name:  "All services healthy",
			redis: true,
			setupRedis: func(m redismock.ClientMock) {
				m.ExpectPing().SetVal("PONG")
			},
			expectedStatus: types.HealthStatusUp,
			expectedComps: map[string]types.HealthStatus{
				"ap_backend": types.HealthStatusUp,
				"redis":      types.HealthStatusUp,
			},
		},
		{
			name:       "Backend down, Redis up",
			backendErr: errors.New("connection refused"),
			redis:      true,
			setupRedis: func(m redismock.ClientMock) {
				m.ExpectPing().SetVal("PONG")
			},
			expectedStatus: types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				"ap_backend": types.HealthStatusDown,
				"redis":      types.HealthStatusUp,
			},
		},
		{
			name:  "Backend up, Redis down",
			redis: true,
			setupRedis: func(m redismock.ClientMock) {
				m.ExpectPing().SetErr(errors.New("redis connection failed"))
			},
			expectedStatus: types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				"ap_backend": types.HealthStatusUp,
				"redis":      types.HealthStatusDown,
			},
		},
		{
			name:           "Redis disabled",
			expectedStatus: types.HealthStatusUp,
			expectedComps: map[string]types.HealthStatus{
				"ap_backend": types.HealthStatusUp,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var service *HealthService
			var redisMock redismock.ClientMock
			if tt.redis {
				client, m := redismock.NewClientMock()
				redisMock = m
				tt.setupRedis(m)
				service = NewHealthService(stubPinger{err: tt.backendErr}, client, "1.0.0")
			} else {
				service = NewHealthService(stubPinger{err: tt.backendErr}, nil, "1.0.0")
			}

			health := service.CheckHealth(context.Background())

			assert.Equal(t, tt.expectedStatus, health.Status)
			require.Len(t, health.Components, len(tt.expectedComps))
			for name, status := range tt.expectedComps {
				assert.Equal(t, status, health.Components[name].Status, name)
			}
			assert.Equal(t, "1.0.0", health.Version)
			assert.NotEmpty(t, health.Timestamp)
			assert.NotEmpty(t, health.Uptime)

			if redisMock != nil {
				assert.NoError(t, redisMock.ExpectationsWereMet())
			}
		})
	}
}

func TestHealthService_ActiveSubscribers(t *testing.T) {
	service := NewHealthService(stubPinger{}, nil, "1.0.0")
	service.SetActiveSubscribersGetter(func() int { return 3 })

	health := service.CheckHealth(context.Background())
	assert.Equal(t, 3, health.Components["events"].Connections)
	assert.Equal(t, types.HealthStatusUp, health.Status)
}
