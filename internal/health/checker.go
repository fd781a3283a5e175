package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger, e.g. a redis client's Ping(ctx).Err.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type dependency struct {
	name   string
	pinger Pinger
}

// Checker verifies that all dependencies are reachable.
type Checker struct {
	deps    []dependency
	timeout time.Duration
	logger  *slog.Logger
	gauge   *prometheus.GaugeVec
}

// NewChecker creates a health checker for postgres and registers its
// Prometheus gauge. Further dependencies are added with Add.
func NewChecker(db Pinger, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "credential",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		deps:    []dependency{{name: "postgres", pinger: db}},
		timeout: 2 * time.Second,
		logger:  logger.With("component", "health"),
		gauge:   gauge,
	}
}

// Add registers another dependency checked by Readiness. Not safe to call
// once the checker is serving.
func (c *Checker) Add(name string, p Pinger) *Checker {
	c.deps = append(c.deps, dependency{name: name, pinger: p})
	sort.SliceStable(c.deps, func(i, j int) bool { return c.deps[i].name < c.deps[j].name })
	return c
}

// Liveness returns a simple "up" response if the process is running.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness pings every dependency and reports per-check status.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := HealthResult{
		Status: "up",
		Checks: make(map[string]CheckResult, len(c.deps)),
	}

	for _, d := range c.deps {
		if err := d.pinger.Ping(checkCtx); err != nil {
			c.logger.WarnContext(ctx, "health check failed", "dependency", d.name, "error", err)
			result.Status = "down"
			result.Checks[d.name] = CheckResult{Status: "down", Error: err.Error()}
			c.gauge.WithLabelValues(d.name).Set(0)
			continue
		}
		result.Checks[d.name] = CheckResult{Status: "up"}
		c.gauge.WithLabelValues(d.name).Set(1)
	}

	return result
}

func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, c.Liveness(r.Context()))
	})
}

// ReadinessHandler answers 503 while any dependency is down.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, c.Readiness(r.Context()))
	})
}

func writeResult(w http.ResponseWriter, res HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
