// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthHandler reports on the ledger's dependencies. Only the database is
// critical: the read cache and the task queue can be down while purchases
// and sales keep working, which reports as degraded.
type HealthHandler struct {
	db          ports.Database
	redis       *redis.Client
	asynq       *asynq.Inspector
	version     string
	environment string
	logger      *slog.Logger
	startTime   time.Time
}

// NewHealthHandler creates a new health handler. The redis client and the
// asynq inspector are optional; absent dependencies are not reported.
func NewHealthHandler(
	database ports.Database,
	redisClient *redis.Client,
	asynqInspector *asynq.Inspector,
	version, environment string,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:          database,
		redis:       redisClient,
		asynq:       asynqInspector,
		version:     version,
		environment: environment,
		logger:      logger.With(slog.String("handler", "health")),
		startTime:   time.Now(),
	}
}

type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]ServiceInfo `json:"services"`
	System      SystemInfo             `json:"system"`
}

type ServiceInfo struct {
	Status       string                 `json:"status"`
	Critical     bool                   `json:"critical"`
	Message      string                 `json:"message,omitempty"`
	ResponseTime string                 `json:"response_time,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// probeFunc returns details for a reachable dependency.
type probeFunc func(ctx context.Context) (map[string]interface{}, error)

// Health handles GET /health. 503 only when a critical dependency fails.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:      statusHealthy,
		Version:     h.version,
		Environment: h.environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now(),
		Services:    make(map[string]ServiceInfo),
		System:      systemInfo(),
	}

	health.Services["database"] = h.probe(ctx, "database", true, h.probeDatabase)
	if h.redis != nil {
		health.Services["cache"] = h.probe(ctx, "cache", false, h.probeCache)
	}
	if h.asynq != nil {
		health.Services["queue"] = h.probe(ctx, "queue", false, h.probeQueue)
	}

	for _, svc := range health.Services {
		if svc.Status == statusHealthy {
			continue
		}
		if svc.Critical {
			health.Status = statusUnhealthy
			break
		}
		health.Status = statusDegraded
	}

	statusCode := http.StatusOK
	if health.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.write(ctx, w, statusCode, health)
}

// Readiness handles GET /ready. The instance can take traffic as soon as the
// database answers; the cache is reported but not required.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := make(map[string]string)

	if err := h.db.Ping(ctx); err != nil {
		ready = false
		details["database"] = "not ready"
	} else {
		details["database"] = "ready"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			details["cache"] = "unavailable"
		} else {
			details["cache"] = "ready"
		}
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}
	h.write(ctx, w, statusCode, map[string]interface{}{
		"ready":   ready,
		"details": details,
	})
}

func (h *HealthHandler) probe(ctx context.Context, name string, critical bool, fn probeFunc) ServiceInfo {
	start := time.Now()
	details, err := fn(ctx)
	info := ServiceInfo{
		Status:       statusHealthy,
		Critical:     critical,
		ResponseTime: time.Since(start).String(),
		Details:      details,
	}
	if err != nil {
		info.Status = statusUnhealthy
		info.Message = err.Error()
		info.Details = nil
		level := slog.LevelWarn
		if critical {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "health probe failed",
			slog.String("dependency", name),
			slog.String("error", err.Error()))
	}
	return info
}

func (h *HealthHandler) probeDatabase(ctx context.Context) (map[string]interface{}, error) {
	if err := h.db.Ping(ctx); err != nil {
		return nil, err
	}
	return h.db.Health(ctx), nil
}

func (h *HealthHandler) probeCache(ctx context.Context) (map[string]interface{}, error) {
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	stats := h.redis.PoolStats()
	return map[string]interface{}{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
	}, nil
}

// probeQueue reports backlog and failures per queue so a stuck reconcile or
// export shows up without opening the asynq dashboard.
func (h *HealthHandler) probeQueue(_ context.Context) (map[string]interface{}, error) {
	queues, err := h.asynq.Queues()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]interface{}, len(queues))
	for _, queue := range queues {
		q, err := h.asynq.GetQueueInfo(queue)
		if err != nil {
			continue
		}
		stats[queue] = map[string]interface{}{
			"pending":   q.Pending,
			"active":    q.Active,
			"scheduled": q.Scheduled,
			"retry":     q.Retry,
			"archived":  q.Archived,
			"paused":    q.Paused,
		}
	}

	details := map[string]interface{}{"queues": stats}
	if servers, err := h.asynq.Servers(); err == nil {
		details["workers_online"] = len(servers)
	}
	return details, nil
}

func (h *HealthHandler) write(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}

func systemInfo() SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemoryAllocMB: memStats.Alloc / 1024 / 1024,
		NumGC:         memStats.NumGC,
	}
}
