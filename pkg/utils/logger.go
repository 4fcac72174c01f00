package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LogLevel orders message severities.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelSuccess
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "SUCCESS", "WARN", "ERROR", "FATAL"}

// ANSI sequences per level, indexed like levelNames.
var levelColors = [...]string{"\033[36m", "\033[32m", "\033[1;32m", "\033[33m", "\033[31m", "\033[35m"}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// LogFormat selects the line layout.
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
	LogFormatCompact
)

// StepDone finishes a scoped step, recording duration and outcome.
// Pass the error that ended the step, or nil on success.
type StepDone func(err error)

// Logger is the logging capability every engine package consumes.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Success(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})

	// Step logs the start of a named operation and returns a closer that
	// logs its duration and outcome.
	Step(name string) StepDone
}

// LoggerConfig describes where and how log lines are written.
type LoggerConfig struct {
	Level       LogLevel
	Format      LogFormat
	Output      io.Writer
	EnableFile  bool
	FilePath    string
	EnableColor bool
}

// DefaultLoggerConfig logs colored text at info level to stderr. Stderr
// keeps log lines out of stdout, which several commands reserve for
// machine-readable output.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:       LogLevelInfo,
		Format:      LogFormatText,
		Output:      os.Stderr,
		EnableColor: true,
	}
}

// termLogger writes leveled lines to a terminal stream and, when configured,
// mirrors them into a file.
type termLogger struct {
	level  LogLevel
	format LogFormat
	color  bool
	out    io.Writer
}

// NewLogger builds a logger from config. A nil config means defaults.
func NewLogger(config *LoggerConfig) (Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	if config.EnableFile && config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		// The handle lives as long as the process; the OS reclaims it on exit.
		f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
	}

	return &termLogger{
		level:  config.Level,
		format: config.Format,
		color:  config.EnableColor,
		out:    out,
	}, nil
}

func (t *termLogger) Debug(msg string, args ...interface{})   { t.emit(LogLevelDebug, msg, args) }
func (t *termLogger) Info(msg string, args ...interface{})    { t.emit(LogLevelInfo, msg, args) }
func (t *termLogger) Success(msg string, args ...interface{}) { t.emit(LogLevelSuccess, msg, args) }
func (t *termLogger) Warn(msg string, args ...interface{})    { t.emit(LogLevelWarn, msg, args) }
func (t *termLogger) Error(msg string, args ...interface{})   { t.emit(LogLevelError, msg, args) }

func (t *termLogger) Fatal(msg string, args ...interface{}) {
	t.emit(LogLevelFatal, msg, args)
	os.Exit(1)
}

func (t *termLogger) Step(name string) StepDone {
	start := time.Now()
	t.Info("▶ %s", name)
	return func(err error) {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			t.Error("✖ %s failed after %s: %v", name, elapsed, err)
			return
		}
		t.Success("✅ %s (%s)", name, elapsed)
	}
}

func (t *termLogger) emit(level LogLevel, msg string, args []interface{}) {
	if level < t.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	now := time.Now()
	var line string
	switch t.format {
	case LogFormatJSON:
		line = jsonLine(now, level, msg)
	case LogFormatCompact:
		line = t.colorize(level, fmt.Sprintf("%c %s %s", levelNames[level][0], now.Format("15:04:05"), msg))
	default:
		line = t.colorize(level, fmt.Sprintf("[%s] %s %s", now.Format("2006-01-02 15:04:05"), levelNames[level], msg))
	}
	fmt.Fprintln(t.out, line)
}

func (t *termLogger) colorize(level LogLevel, line string) string {
	if !t.color {
		return line
	}
	return levelColors[level] + line + "\033[0m"
}

func jsonLine(now time.Time, level LogLevel, msg string) string {
	payload, err := json.Marshal(struct {
		Time    string `json:"timestamp"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}{now.Format(time.RFC3339), level.String(), msg})
	if err != nil {
		return fmt.Sprintf(`{"level":%q,"message":%q}`, level.String(), msg)
	}
	return string(payload)
}

// NopLogger discards everything. It is the default logging capability for
// engine components constructed without a logger.
type NopLogger struct{}

// NewNopLogger returns a logger that discards all output.
func NewNopLogger() *NopLogger { return &NopLogger{} }

func (n *NopLogger) Debug(msg string, args ...interface{})   {}
func (n *NopLogger) Info(msg string, args ...interface{})    {}
func (n *NopLogger) Warn(msg string, args ...interface{})    {}
func (n *NopLogger) Error(msg string, args ...interface{})   {}
func (n *NopLogger) Success(msg string, args ...interface{}) {}
func (n *NopLogger) Fatal(msg string, args ...interface{})   {}

func (n *NopLogger) Step(name string) StepDone { return func(error) {} }

var globalLogger Logger

// InitGlobalLogger replaces the process-wide logger. Called once from the
// CLI root after flags and config are resolved.
func InitGlobalLogger(config *LoggerConfig) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// GetGlobalLogger returns the process-wide logger, creating a default one
// on first use.
func GetGlobalLogger() Logger {
	if globalLogger == nil {
		logger, _ := NewLogger(DefaultLoggerConfig())
		globalLogger = logger
	}
	return globalLogger
}
