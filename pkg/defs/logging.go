package defs

import (
	"fmt"
	"log/slog"

	"github.com/go-softwarelab/common/pkg/slogx"
)

// LogLevel is the minimum severity a PeerPay logger emits.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLogLevelStr parses a log level name, ignoring case.
func ParseLogLevelStr(level string) (LogLevel, error) {
	return parseEnumCaseInsensitive(level, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)
}

// SlogLevel maps the level onto slog, falling back to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogHandler selects the console output format.
type LogHandler string

const (
	JSONHandler LogHandler = "json"
	TextHandler LogHandler = "text"
)

// ParseHandlerTypeStr parses a log format name, ignoring case.
func ParseHandlerTypeStr(handlerType string) (LogHandler, error) {
	return parseEnumCaseInsensitive(handlerType, JSONHandler, TextHandler)
}

// LogConfig describes the console logger used by PeerPay commands.
type LogConfig struct {
	Level   LogLevel
	Handler LogHandler
}

// ParseLogConfig parses level and format names, as given on a command line.
func ParseLogConfig(level, handler string) (LogConfig, error) {
	parsedLevel, err := ParseLogLevelStr(level)
	if err != nil {
		return LogConfig{}, fmt.Errorf("invalid log level: %w", err)
	}

	parsedHandler, err := ParseHandlerTypeStr(handler)
	if err != nil {
		return LogConfig{}, fmt.Errorf("invalid log format: %w", err)
	}

	return LogConfig{Level: parsedLevel, Handler: parsedHandler}, nil
}

// Logger builds a console logger for the configuration.
func (c LogConfig) Logger() *slog.Logger {
	output := slogx.NewBuilder().
		WithSlogLevel(c.Level.SlogLevel()).
		WritingToConsole()

	if c.Handler == JSONHandler {
		return output.WithJSONFormat().Logger()
	}
	return output.WithTextFormat().Logger()
}
