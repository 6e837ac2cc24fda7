package observability

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/soil-water-etl/internal/config"
)

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level, format string
		enabled       slog.Level
		disabled      slog.Level
	}{
		{"warn", "json", slog.LevelWarn, slog.LevelInfo},
		{"WARN", "text", slog.LevelWarn, slog.LevelInfo},
		{"debug", "json", slog.LevelDebug, slog.LevelDebug - 1},
		{"", "json", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tt := range tests {
		logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: tt.format})
		assert.True(t, logger.Enabled(t.Context(), tt.enabled), tt.level)
		assert.False(t, logger.Enabled(t.Context(), tt.disabled), tt.level)
		assert.Same(t, logger, slog.Default(), "logger is installed as the default")
	}
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.RecordsProduced.WithLabelValues("kafka").Add(3)
	m.EvaluationErrors.WithLabelValues("deficit").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.RecordsProduced.WithLabelValues("kafka")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EvaluationErrors.WithLabelValues("deficit")), 0)
}
