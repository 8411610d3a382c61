package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of the message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

const timeFormat = "[2006/01/02 15:04:05]"

// NewMockLogger returns a convenient mock logger for testing
func NewMockLogger() *DefaultLogger {
	return newLogger(bytes.NewBufferString(""), INFO)
}

// Logger interface defines logging operations
//
//go:generate mockery --name=Logger --output=./mocks
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(w io.Writer)
	SetLevel(level LogLevel)
}

// DefaultLogger provides a standard implementation on top of zerolog
type DefaultLogger struct {
	writer io.Writer
	level  LogLevel
	zl     zerolog.Logger
}

// NewDefaultLogger creates a new logger instance writing to stderr, so stdout
// stays clean for reports.
func NewDefaultLogger() *DefaultLogger {
	return newLogger(os.Stderr, INFO)
}

func newLogger(w io.Writer, level LogLevel) *DefaultLogger {
	l := &DefaultLogger{level: level}
	l.SetOutput(w)
	return l
}

// Debug logs debug messages
func (l *DefaultLogger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs informational messages
func (l *DefaultLogger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Warn logs warning messages
func (l *DefaultLogger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs error messages
func (l *DefaultLogger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// SetOutput sets the output destination for the logger
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.writer = w
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: timeFormat,
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprintf("%s:", i))
		},
	}
	l.zl = zerolog.New(console).Level(toZerologLevel(l.level)).With().Timestamp().Logger()
}

// SetLevel sets the logging level
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level = level
	l.zl = l.zl.Level(toZerologLevel(level))
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// StringToLogLevel converts a string representation to a LogLevel
func StringToLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}
