// Package health reports the engine's view of its backends. Checks run
// on demand when a probe endpoint is hit; only critical backends gate
// readiness.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of probing one backend.
type CheckResult struct {
	Component string        `json:"component"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Critical  bool          `json:"critical"`
}

// Checker probes one backend.
type Checker interface {
	Name() string
	// Critical failures mark the whole service not ready.
	Critical() bool
	Check(ctx context.Context) error
}

// Manager runs the registered checkers and serves probe endpoints.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

const checkTimeout = 5 * time.Second

// Run probes every checker and reports the results plus overall
// readiness (no critical backend failing).
func (m *Manager) Run(ctx context.Context) ([]CheckResult, bool) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	results := make([]CheckResult, 0, len(checkers))
	ready := true
	for _, c := range checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		start := time.Now()
		err := c.Check(cctx)
		cancel()

		r := CheckResult{
			Component: c.Name(),
			Status:    StatusHealthy,
			Duration:  time.Since(start),
			Critical:  c.Critical(),
		}
		if err != nil {
			r.Status = StatusUnhealthy
			r.Error = err.Error()
			if c.Critical() {
				ready = false
			}
			m.logger.Warn("Health check failed",
				zap.String("component", c.Name()),
				zap.Bool("critical", c.Critical()),
				zap.Error(err),
			)
		}
		results = append(results, r)
	}
	return results, ready
}

// RegisterRoutes registers liveness and readiness probes on the mux.
func (m *Manager) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		results, ready := m.Run(r.Context())
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ready":      ready,
			"components": results,
		})
	})
}
