package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents the severity level of a log message
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// levelColors maps log levels to ANSI color codes
var levelColors = map[Level]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
}

var levelPrefixes = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
}

// Logger is a leveled logger writing to stdout. A nil *Logger is valid and
// silent, so library code can log unconditionally.
type Logger struct {
	level     Level
	logger    *log.Logger
	useColors bool
}

// New creates a logger with the given level ("debug", "info", "warn", "error")
func New(levelStr string) *Logger {
	var level Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = DEBUG
	case "warn":
		level = WARN
	case "error":
		level = ERROR
	default:
		level = INFO
	}

	l := &Logger{
		level:     level,
		logger:    log.New(os.Stdout, "", log.Ltime),
		useColors: true,
	}

	// Disable colors if stdout is not a terminal
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		l.useColors = false
	}

	return l
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}

	prefix := levelPrefixes[level]
	msg := fmt.Sprintf(format, args...)

	if l.useColors {
		l.logger.Printf("%s%s\033[0m %s", levelColors[level], prefix, msg)
	} else {
		l.logger.Printf("%s %s", prefix, msg)
	}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info logs a message at INFO level
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn logs a message at WARN level
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error logs a message at ERROR level
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }
