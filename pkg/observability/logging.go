// Package observability provides the leveled logger and Prometheus metrics
// used by the server and CLI shells. The core library stays silent; only
// the shells log and measure.
package observability

import (
	"fmt"
	"io"
	"os"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to its LogLevel, defaulting to INFO.
func ParseLevel(name string) LogLevel {
	switch name {
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN":
		return WARN
	case "error", "ERROR":
		return ERROR
	case "fatal", "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger is a leveled key-value logger. Loggers are cheap to derive with
// WithField(s); derived loggers share the output writer.
type Logger struct {
	level      LogLevel
	output     io.Writer
	fields     map[string]interface{}
	timeFormat string
}

// NewLogger creates a logger writing entries at or above the given level.
// A nil output defaults to stdout.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{
		level:      level,
		output:     output,
		fields:     make(map[string]interface{}),
		timeFormat: time.RFC3339,
	}
}

// NewDefaultLogger creates an INFO logger on stdout.
func NewDefaultLogger() *Logger {
	return NewLogger(INFO, os.Stdout)
}

// WithFields returns a new logger that adds the given fields to every
// entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:      l.level,
		output:     l.output,
		fields:     merged,
		timeFormat: l.timeFormat,
	}
}

// WithField returns a new logger with one additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WARN, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ERROR, msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FATAL, msg, fields...)
	os.Exit(1)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// LogOperation logs the start, outcome, and duration of an operation.
func (l *Logger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	l.Info("starting " + operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.Error("failed "+operation, map[string]interface{}{
			"duration": duration,
			"error":    err.Error(),
		})
	} else {
		l.Info("completed "+operation, map[string]interface{}{
			"duration": duration,
		})
	}
	return err
}

func (l *Logger) log(level LogLevel, msg string, extraFields ...map[string]interface{}) {
	if level < l.level {
		return
	}

	allFields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		allFields[k] = v
	}
	for _, fields := range extraFields {
		for k, v := range fields {
			allFields[k] = v
		}
	}

	entry := fmt.Sprintf("[%s] %s: %s", time.Now().Format(l.timeFormat), level.String(), msg)
	if len(allFields) > 0 {
		entry += " |"
		for k, v := range allFields {
			entry += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	l.output.Write([]byte(entry + "\n"))
}
