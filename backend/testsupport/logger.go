package testsupport

import (
	"strings"
	"sync"
)

// LogEntry is one message captured by RecordingLogger.
type LogEntry struct {
	Level   string
	Message string
	Source  string
}

// RecordingLogger satisfies common.Logger and keeps every message for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *RecordingLogger) record(level, msg string, source []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := LogEntry{Level: level, Message: msg}
	if len(source) > 0 {
		entry.Source = source[0]
	}
	l.entries = append(l.entries, entry)
}

func (l *RecordingLogger) Debug(msg string, source ...string) { l.record("DEBUG", msg, source) }
func (l *RecordingLogger) Info(msg string, source ...string)  { l.record("INFO", msg, source) }
func (l *RecordingLogger) Warn(msg string, source ...string)  { l.record("WARN", msg, source) }
func (l *RecordingLogger) Error(msg string, source ...string) { l.record("ERROR", msg, source) }

// Entries returns a copy of the captured messages.
func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Contains reports whether any entry at level contains substr.
func (l *RecordingLogger) Contains(level, substr string) bool {
	for _, entry := range l.Entries() {
		if entry.Level == level && strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}
