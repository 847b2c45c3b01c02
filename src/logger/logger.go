package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, recording).
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

var (
	infoTag  = color.New(color.FgCyan).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
	debugTag = color.New(color.Faint).SprintFunc()
)

// ConsoleLogger writes human-readable logs to stdout/stderr.
// Debug lines are dropped unless debug output is enabled.
type ConsoleLogger struct {
	out   io.Writer
	err   io.Writer
	debug bool
}

func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{out: os.Stdout, err: os.Stderr}
}

// NewDebugConsoleLogger returns a ConsoleLogger that also prints Debug lines.
func NewDebugConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{out: os.Stdout, err: os.Stderr, debug: true}
}

// NewStderrConsoleLogger sends every line to stderr, for commands whose
// stdout is machine-readable output.
func NewStderrConsoleLogger(debug bool) *ConsoleLogger {
	return &ConsoleLogger{out: os.Stderr, err: os.Stderr, debug: debug}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(c.out, infoTag("[INFO] ")+msg+"\n", args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(c.err, warnTag("[WARN] ")+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(c.err, errorTag("[ERROR] ")+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.debug {
		return
	}
	fmt.Fprintf(c.out, debugTag("[DEBUG] ")+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI or MCP stdio mode, where stdout belongs to the display or protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// Entry is a single formatted line captured by a RecordingLogger.
type Entry struct {
	Level   string
	Message string
}

// RecordingLogger keeps every formatted line in memory so tests can assert on them.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (r *RecordingLogger) record(level, msg string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(msg, args...)})
}

func (r *RecordingLogger) Info(msg string, args ...interface{})  { r.record("INFO", msg, args...) }
func (r *RecordingLogger) Warn(msg string, args ...interface{})  { r.record("WARN", msg, args...) }
func (r *RecordingLogger) Error(msg string, args ...interface{}) { r.record("ERROR", msg, args...) }
func (r *RecordingLogger) Debug(msg string, args ...interface{}) { r.record("DEBUG", msg, args...) }

// Entries returns a copy of the recorded lines.
func (r *RecordingLogger) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Contains reports whether any line at level contains substr.
func (r *RecordingLogger) Contains(level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
