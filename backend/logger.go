package backend

import (
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// LogLevel represents the severity level of a log entry
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry represents a single log entry
type LogEntry struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
}

// Logger keeps the most recent application log entries in memory and mirrors
// them to klog at verbosity 2.
type Logger struct {
	mu       sync.RWMutex
	entries  []LogEntry
	maxSize  int
	sequence uint64
	onAdded  func(LogEntry)
}

// NewLogger creates a new logger with specified maximum entries
func NewLogger(maxSize int) *Logger {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Logger{
		entries: make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Log adds a log entry with the specified level, message and optional source
func (l *Logger) Log(level LogLevel, message string, source ...string) {
	if l == nil {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   message,
	}
	if len(source) > 0 {
		entry.Source = source[0]
	}

	l.mu.Lock()
	l.sequence++
	entry.Sequence = l.sequence
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxSize {
		// Re-slice into a fresh buffer so capacity can't grow unbounded
		start := len(l.entries) - l.maxSize
		newEntries := make([]LogEntry, l.maxSize)
		copy(newEntries, l.entries[start:])
		l.entries = newEntries
	}
	onAdded := l.onAdded
	l.mu.Unlock()

	if klog.V(2).Enabled() {
		klog.InfoDepth(1, "["+entry.Level+"] "+entry.Source+": "+message)
	}
	if onAdded != nil {
		onAdded(entry)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, source ...string) {
	l.Log(LogLevelDebug, message, source...)
}

// Info logs an info message
func (l *Logger) Info(message string, source ...string) {
	l.Log(LogLevelInfo, message, source...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, source ...string) {
	l.Log(LogLevelWarn, message, source...)
}

// Error logs an error message
func (l *Logger) Error(message string, source ...string) {
	l.Log(LogLevelError, message, source...)
}

// GetEntries returns a copy of all log entries
func (l *Logger) GetEntries() []LogEntry {
	return l.EntriesSince(0)
}

// EntriesSince returns the retained entries with a sequence above since.
func (l *Logger) EntriesSince(since uint64) []LogEntry {
	if l == nil {
		return []LogEntry{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]LogEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if entry.Sequence > since {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Clear removes all log entries
func (l *Logger) Clear() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = l.entries[:0]
}

// Count returns the number of log entries
func (l *Logger) Count() int {
	if l == nil {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// OnEntry sets a callback invoked, outside the lock, for every new entry.
func (l *Logger) OnEntry(fn func(LogEntry)) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAdded = fn
}
