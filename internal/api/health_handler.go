package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equihome/launchpad/internal/pkg/httputil"
)

// Pinger is implemented by every storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string                    `json:"status"`
	Timestamp time.Time                 `json:"timestamp"`
	Storage   string                    `json:"storage"`
	Database  string                    `json:"database"`
	Redis     string                    `json:"redis,omitempty"`
	Uptime    string                    `json:"uptime"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the health of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker pings the storage backend and, when configured, Redis.
type HealthChecker struct {
	storage     string
	db          Pinger
	redisClient *redis.Client
	startTime   time.Time
}

// NewHealthChecker creates a health checker. redisClient may be nil.
func NewHealthChecker(storage string, db Pinger, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		storage:     storage,
		db:          db,
		redisClient: redisClient,
		startTime:   time.Now(),
	}
}

// HandleHealth always answers 200; the body carries dependency state.
//
//	GET /health, GET /api/health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Storage:   hc.storage,
		Database:  connState(checks["database"]),
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
	if c, ok := checks["redis"]; ok {
		status.Redis = connState(c)
	}
	httputil.OK(w, status)
}

// HandleReadiness answers 503 while the storage backend is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	ready := checks["database"].Status != "down"
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, map[string]any{
		"ready":  ready,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	n := 1
	ch := make(chan result, 2)
	go func() { ch <- result{"database", hc.checkDatabase(ctx)} }()
	if hc.redisClient != nil {
		n++
		go func() { ch <- result{"redis", hc.checkRedis(ctx)} }()
	}

	checks := make(map[string]ComponentCheck, n)
	for i := 0; i < n; i++ {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}
	return timedPing(ctx, 3*time.Second, time.Second, hc.db.Ping)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	return timedPing(ctx, 2*time.Second, 500*time.Millisecond, func(ctx context.Context) error {
		return hc.redisClient.Ping(ctx).Err()
	})
}

func timedPing(ctx context.Context, timeout, slow time.Duration, ping func(context.Context) error) ComponentCheck {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: "ping failed"}
	}
	if latency > slow {
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

func connState(c ComponentCheck) string {
	if c.Status == "down" {
		return "unavailable"
	}
	return "connected"
}
