package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ErlanBelekov/credential-service/internal/health"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func newTestChecker(p health.Pinger) (*health.Checker, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return health.NewChecker(p, logger, reg), reg
}

func TestLiveness_AlwaysUp(t *testing.T) {
	c, _ := newTestChecker(&mockPinger{err: errors.New("db down")})

	result := c.Liveness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	if result.Checks != nil {
		t.Fatalf("expected no checks, got %v", result.Checks)
	}
}

func TestReadiness_PostgresUp(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{})

	result := c.Readiness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	pg, ok := result.Checks["postgres"]
	if !ok {
		t.Fatal("missing postgres check")
	}
	if pg.Status != "up" {
		t.Fatalf("expected postgres up, got %s", pg.Status)
	}

	if got := testGauge(t, reg, "postgres"); got != 1 {
		t.Fatalf("expected gauge 1, got %f", got)
	}
}

func TestReadiness_PostgresDown(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{err: errors.New("connection refused")})

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	pg := result.Checks["postgres"]
	if pg.Status != "down" {
		t.Fatalf("expected postgres down, got %s", pg.Status)
	}
	if pg.Error == "" {
		t.Fatal("expected error message")
	}

	if got := testGauge(t, reg, "postgres"); got != 0 {
		t.Fatalf("expected gauge 0, got %f", got)
	}
}

func TestReadiness_RedisDownMarksNotReady(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{})
	c.Add("redis", health.PingFunc(func(context.Context) error { return errors.New("i/o timeout") }))

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	if result.Checks["postgres"].Status != "up" || result.Checks["redis"].Status != "down" {
		t.Fatalf("unexpected checks %v", result.Checks)
	}
	if got := testGauge(t, reg, "redis"); got != 0 {
		t.Fatalf("expected redis gauge 0, got %f", got)
	}
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		handler func(*health.Checker) http.Handler
		status  int
		body    string
	}{
		{"liveness ignores dependencies", errors.New("down"), (*health.Checker).LivenessHandler, http.StatusOK, "up"},
		{"readiness up", nil, (*health.Checker).ReadinessHandler, http.StatusOK, "up"},
		{"readiness down", errors.New("down"), (*health.Checker).ReadinessHandler, http.StatusServiceUnavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestChecker(&mockPinger{err: tt.pingErr})

			w := httptest.NewRecorder()
			tt.handler(c).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var res health.HealthResult
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Status != tt.body {
				t.Fatalf("body status = %q, want %q", res.Status, tt.body)
			}
		})
	}
}

func testGauge(t *testing.T, reg *prometheus.Registry, dep string) float64 {
	t.Helper()
	gauges, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range gauges {
		if mf.GetName() != "credential_health_check_up" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "dependency" && lp.GetValue() == dep {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("gauge for %q not found", dep)
	return 0
}

func TestGaugeCollects(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{})
	c.Readiness(context.Background())

	if n, err := testutil.GatherAndCount(reg, "credential_health_check_up"); err != nil || n != 1 {
		t.Fatalf("GatherAndCount = %d, %v", n, err)
	}
}
