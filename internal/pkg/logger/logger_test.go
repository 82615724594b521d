package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &LogConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "phoneshop-api",
	}))

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithValues(ctx, map[ContextKey]any{ContextKeyMethod: "POST", ContextKeyPath: "/api/v1/purchases"})
	log.InfoContext(ctx, "purchase created", slog.String("purchase_id", "p-1"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "purchase created", entry["msg"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/v1/purchases", entry["path"])
	assert.Equal(t, "phoneshop-api", entry["service"])
	assert.Equal(t, "p-1", entry["purchase_id"])
	assert.NotContains(t, entry, "level")
}

func TestNewHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &LogConfig{Level: "warn", Format: "json"}))

	log.Info("ignored")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Equal(t, "WARN", decodeLine(t, &buf)["severity"])
}

func TestSanitizationHandler(t *testing.T) {
	tests := []struct {
		name     string
		log      func(*slog.Logger)
		key      string
		expected string
	}{
		{
			name:     "blacklisted_key",
			log:      func(l *slog.Logger) { l.Info("customer", slog.String("passport_id", "X1234567")) },
			key:      "passport_id",
			expected: redacted,
		},
		{
			name:     "secret_in_value",
			log:      func(l *slog.Logger) { l.Info("config", slog.String("detail", "api_key=abc123")) },
			key:      "detail",
			expected: "api_key=" + redacted,
		},
		{
			name:     "database_url_password",
			log:      func(l *slog.Logger) { l.Info("db", slog.String("dsn", "postgres://shop:hunter2@db:5432/shop")) },
			key:      "dsn",
			expected: "postgres://shop:" + redacted + "@db:5432/shop",
		},
		{
			name:     "email_in_value",
			log:      func(l *slog.Logger) { l.Info("customer", slog.String("contact", "jane@example.com")) },
			key:      "contact",
			expected: redacted,
		},
		{
			name:     "ordinary_value_untouched",
			log:      func(l *slog.Logger) { l.Info("item", slog.String("imei", "490154203237518")) },
			key:      "imei",
			expected: "490154203237518",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(NewHandler(&buf, &LogConfig{Level: "info", Format: "json"})))
			assert.Equal(t, tt.expected, decodeLine(t, &buf)[tt.key])
		})
	}
}

func TestSanitizationHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &LogConfig{Level: "info", Format: "json"})).
		With(slog.String("token", "t0k3n"))

	log.Info("hello")
	assert.Equal(t, redacted, decodeLine(t, &buf)["token"])
}

func TestSamplingHandler_KeepsWarnings(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), 0.0001))

	for range 20 {
		log.Warn("reconcile violation")
	}
	assert.Equal(t, 20, strings.Count(buf.String(), "reconcile violation"))
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &LogConfig{Level: "debug", Format: "text"})).
		With(slog.String("component", "worker"))

	log.Debug("task started", slog.String("task_type", "ledger:reconcile"))

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "task started")
	assert.Contains(t, out, "component\033[0m=worker")
	assert.Contains(t, out, "task_type\033[0m=ledger:reconcile")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG").Level())
	assert.Equal(t, slog.LevelWarn, parseLevel("warning").Level())
	assert.Equal(t, slog.LevelError, parseLevel("error").Level())
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus").Level())
}
