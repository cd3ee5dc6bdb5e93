// Package logger provides a minimal leveled logger used across the service.
// Messages below the configured level are dropped before formatting.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging severity level
type Level int

const (
	// DebugLevel is verbose diagnostic output, disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default level for normal operation.
	InfoLevel
	// WarnLevel marks recoverable problems worth surfacing.
	WarnLevel
	// ErrorLevel marks failures that need attention.
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel: "[DEBUG]",
	InfoLevel:  "[INFO]",
	WarnLevel:  "[WARN]",
	ErrorLevel: "[ERROR]",
}

// ParseLevel maps a level name to a Level, defaulting to InfoLevel
// for unknown names.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var std = &leveled{
	min: InfoLevel,
	out: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
}

type leveled struct {
	min Level
	out *log.Logger
}

// Init configures the package-level logger. Format "text" adds caller
// file and line to each record.
func Init(level string, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std = &leveled{
		min: ParseLevel(level),
		out: log.New(os.Stderr, "", flags),
	}
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	std.out.SetOutput(w)
}

func (l *leveled) log(lvl Level, format string, args ...interface{}) {
	if lvl < l.min {
		return
	}
	_ = l.out.Output(3, levelTags[lvl]+" "+fmt.Sprintf(format, args...))
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	std.log(DebugLevel, format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	std.log(InfoLevel, format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	std.log(WarnLevel, format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	std.log(ErrorLevel, format, args...)
}

// Fatal logs a message at ErrorLevel and terminates the process.
func Fatal(format string, args ...interface{}) {
	_ = std.out.Output(3, "[FATAL] "+fmt.Sprintf(format, args...))
	os.Exit(1)
}
