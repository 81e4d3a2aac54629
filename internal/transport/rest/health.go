package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
	DurationMs int64        `json:"duration_ms"`
}

// Checker tests one dependency; a nil error means healthy.
type Checker func(ctx context.Context) error

func DatabaseCheck(db *sqlx.DB) Checker {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func RedisCheck(rdb redis.UniversalClient) Checker {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

type HealthHandler struct {
	checks map[string]Checker
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// pingHandler is liveness only.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// healthCheckHandler is readiness: every registered component must answer.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := h.Check(r.Context())

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, statusCode, resp)
}

func (h *HealthHandler) Check(ctx context.Context) HealthResponse {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		Components: make(map[string]CheckEntry, len(names)),
	}

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		start := time.Now()
		err := h.checks[name](checkCtx)
		cancel()

		entry := CheckEntry{
			Status:     HealthHealthy,
			CheckedAt:  time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			entry.Status = HealthUnhealthy
			entry.Message = err.Error()
			resp.Status = HealthUnhealthy
		}
		resp.Components[name] = entry
	}

	return resp
}

func writeHealthJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
