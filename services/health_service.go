package services

import (
	"context"
	"time"

	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BackendPinger checks reachability of the AP backend.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	backend     BackendPinger
	redisClient *redis.Client
	version     string
	startTime   time.Time
	log         *zap.SugaredLogger

	activeSubscribers func() int
}

// NewHealthService creates a health service. redisClient is nil when Redis
// is disabled and then is not reported.
func NewHealthService(backend BackendPinger, redisClient *redis.Client, version string) *HealthService {
	return &HealthService{
		backend:     backend,
		redisClient: redisClient,
		version:     version,
		startTime:   time.Now(),
		log:         logger.GetLogger().Named("health"),
	}
}

// SetActiveSubscribersGetter reports live event stream connections in the
// "events" component.
func (h *HealthService) SetActiveSubscribersGetter(getter func() int) {
	h.activeSubscribers = getter
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	// The workbench cannot serve a dossier without the backend.
	backendStatus := h.checkBackend(ctx)
	components["ap_backend"] = backendStatus
	if backendStatus.Status == types.HealthStatusDown {
		overallStatus = types.HealthStatusDown
	}

	if h.redisClient != nil {
		redisStatus := h.checkRedis(ctx)
		components["redis"] = redisStatus
		if redisStatus.Status == types.HealthStatusDown {
			overallStatus = types.HealthStatusDown
		} else if redisStatus.Status == types.HealthStatusDegraded && overallStatus != types.HealthStatusDown {
			overallStatus = types.HealthStatusDegraded
		}
	}

	if h.activeSubscribers != nil {
		components["events"] = types.HealthComponent{
			Status:      types.HealthStatusUp,
			Connections: h.activeSubscribers(),
		}
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkBackend(ctx context.Context) types.HealthComponent {
	start := time.Now()
	if err := h.backend.Ping(ctx); err != nil {
		h.log.Errorw("AP backend health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "AP backend unreachable",
		}
	}
	latency := time.Since(start)
	if latency > 2*time.Second {
		return types.HealthComponent{
			Status:    types.HealthStatusDegraded,
			Details:   "AP backend responding slowly",
			LatencyMS: latency.Milliseconds(),
		}
	}
	return types.HealthComponent{
		Status:    types.HealthStatusUp,
		LatencyMS: latency.Milliseconds(),
	}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}

	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}
