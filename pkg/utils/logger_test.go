package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, cfg *LoggerConfig) (*bytes.Buffer, Logger) {
	t.Helper()
	buf := &bytes.Buffer{}
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	cfg.Output = buf
	cfg.EnableColor = false
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	return buf, logger
}

func TestLoggerLevelGate(t *testing.T) {
	buf, logger := newBufferLogger(t, &LoggerConfig{Level: LogLevelWarn, Format: LogFormatText})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Success("hidden success")
	logger.Warn("visible warn")
	logger.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN visible warn")
	assert.Contains(t, out, "ERROR visible error")
}

func TestLoggerFormatsArgs(t *testing.T) {
	buf, logger := newBufferLogger(t, nil)

	logger.Info("installed %d packages to %s", 3, "/opt/sdk")

	assert.Contains(t, buf.String(), "installed 3 packages to /opt/sdk")
}

func TestLoggerTextFormat(t *testing.T) {
	buf, logger := newBufferLogger(t, nil)

	logger.Info("plain line")

	out := buf.String()
	assert.Contains(t, out, "INFO plain line")
	assert.NotContains(t, out, "\033[", "color disabled must not emit ANSI codes")
}

func TestLoggerColor(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: buf, EnableColor: true})
	require.NoError(t, err)

	logger.Warn("tinted")

	out := buf.String()
	assert.Contains(t, out, "\033[33m")
	assert.True(t, strings.HasSuffix(strings.TrimRight(out, "\n"), "\033[0m"))
}

func TestLoggerJSONFormat(t *testing.T) {
	buf, logger := newBufferLogger(t, &LoggerConfig{Level: LogLevelInfo, Format: LogFormatJSON})

	logger.Error("fetch failed: %v", errors.New("timeout"))

	var entry struct {
		Time    string `json:"timestamp"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "fetch failed: timeout", entry.Message)
	assert.NotEmpty(t, entry.Time)
}

func TestLoggerCompactFormat(t *testing.T) {
	buf, logger := newBufferLogger(t, &LoggerConfig{Level: LogLevelInfo, Format: LogFormatCompact})

	logger.Info("short line")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "I "), "compact lines start with the level initial: %q", out)
	assert.Contains(t, out, "short line")
}

func TestLoggerStepSuccess(t *testing.T) {
	buf, logger := newBufferLogger(t, nil)

	done := logger.Step("Install platform android-34")
	done(nil)

	out := buf.String()
	assert.Contains(t, out, "▶ Install platform android-34")
	assert.Contains(t, out, "✅ Install platform android-34")
}

func TestLoggerStepFailure(t *testing.T) {
	buf, logger := newBufferLogger(t, nil)

	done := logger.Step("Install NDK r26d")
	done(errors.New("archive corrupt"))

	out := buf.String()
	assert.Contains(t, out, "▶ Install NDK r26d")
	assert.Contains(t, out, "✖ Install NDK r26d failed after")
	assert.Contains(t, out, "archive corrupt")
	assert.NotContains(t, out, "✅")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "SUCCESS", LogLevelSuccess.String())
	assert.Equal(t, "FATAL", LogLevelFatal.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestNewLoggerNilConfig(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	logger.Debug("dropped")
	logger.Fatal("dropped, and must not exit")
	done := logger.Step("noop")
	done(errors.New("ignored"))
}

func TestGetGlobalLoggerInitializesOnce(t *testing.T) {
	first := GetGlobalLogger()
	second := GetGlobalLogger()
	require.NotNil(t, first)
	assert.Same(t, first, second)
}
