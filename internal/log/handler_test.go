package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ErlanBelekov/credential-service/internal/requestid"
)

func TestContextHandler_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", slog.LevelInfo, &buf)

	ctx := requestid.WithRequestID(context.Background(), "req-1")
	ctx = WithIdentityID(ctx, "identity-1")
	logger.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id = %v", rec["request_id"])
	}
	if rec["identity_id"] != "identity-1" {
		t.Errorf("identity_id = %v", rec["identity_id"])
	}
}

func TestContextHandler_OmitsAbsentValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", slog.LevelInfo, &buf).With("component", "test")
	logger.Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := rec["request_id"]; ok {
		t.Error("request_id present without a request")
	}
	if rec["component"] != "test" {
		t.Errorf("component = %v", rec["component"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New("local", slog.LevelWarn, &buf)
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn not logged")
	}
}
