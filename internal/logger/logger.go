// Package logger provides leveled logging for nutrirag.
// Debug and Info messages are printed only when verbose mode is enabled via
// the --verbose flag. Warnings and errors are always printed to stderr so
// skipped files and degraded cache calls stay visible.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is a log severity.
type Level int

// Log levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the tag printed before messages of this level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "LOG"
	}
}

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Enabled reports whether messages at level are printed.
func Enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled(level)
}

func enabled(level Level) bool {
	return level >= LevelWarn || verbose
}

func logf(level Level, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled(level) {
		return
	}
	fmt.Fprintf(output, "["+level.String()+"] "+prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(LevelDebug, "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(LevelInfo, "", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	logf(LevelWarn, "", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	logf(LevelError, "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Component logs with a fixed "name: " prefix.
type Component struct {
	prefix string
}

// For returns a component logger.
func For(name string) Component {
	return Component{prefix: name + ": "}
}

// Debug prints a message if verbose mode is enabled.
func (c Component) Debug(format string, args ...any) {
	logf(LevelDebug, c.prefix, format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func (c Component) Info(format string, args ...any) {
	logf(LevelInfo, c.prefix, format, args...)
}

// Warn prints a warning message.
func (c Component) Warn(format string, args ...any) {
	logf(LevelWarn, c.prefix, format, args...)
}

// Error prints an error message.
func (c Component) Error(format string, args ...any) {
	logf(LevelError, c.prefix, format, args...)
}
