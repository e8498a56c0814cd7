package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config uses defaults", config: nil},
		{name: "explicit debug level", config: &Config{Level: LevelDebug, Output: &bytes.Buffer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			assert.NotNil(t, logger)
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("also should not appear")
	assert.Empty(t, buf.String())

	logger.Warn("this appears")
	assert.Contains(t, buf.String(), "this appears")
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	zoneLogger := logger.WithZone(7)
	zoneLogger.Info("flushed chunk")

	output := buf.String()
	assert.Contains(t, output, "flushed chunk")
	assert.Contains(t, output, "zone_id=7")

	// Chaining accumulates fields without mutating the parent.
	buf.Reset()
	doubled := zoneLogger.With("chunk", 3)
	doubled.Info("second")
	assert.Contains(t, buf.String(), "zone_id=7")
	assert.Contains(t, buf.String(), "chunk=3")

	buf.Reset()
	zoneLogger.Info("third")
	assert.NotContains(t, buf.String(), "chunk=3")
}

func TestLoggerArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Debug("allocated chunk", "slots", 4096, "id", 2)
	output := buf.String()
	assert.True(t, strings.Contains(output, "slots=4096") && strings.Contains(output, "id=2"))
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))
	t.Cleanup(func() { SetDefault(NewLogger(nil)) })

	Debug("debug message", "key", "value")
	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	Info("info message")
	assert.Contains(t, buf.String(), "info message")

	buf.Reset()
	Warn("warning message")
	assert.Contains(t, buf.String(), "warning message")

	buf.Reset()
	Error("error message")
	assert.Contains(t, buf.String(), "error message")
}
