package mocks

import (
	"fmt"
	"sync"

	"github.com/user/loadsim/pkg/ports"
)

// LogEntry is one message captured by Logger.
type LogEntry struct {
	Level   ports.LogLevel
	Message string
}

type logStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Logger is a mock implementation of ports.Logger that keeps every message.
// Loggers derived with WithComponent share the parent's entries.
type Logger struct {
	store  *logStore
	prefix string
}

// NewLogger creates a new mock Logger.
func NewLogger() *Logger {
	return &Logger{store: &logStore{}}
}

func (m *Logger) Debug(msg string, args ...interface{}) { m.add(ports.LevelDebug, msg, args) }
func (m *Logger) Info(msg string, args ...interface{})  { m.add(ports.LevelInfo, msg, args) }
func (m *Logger) Warn(msg string, args ...interface{})  { m.add(ports.LevelWarn, msg, args) }
func (m *Logger) Error(msg string, args ...interface{}) { m.add(ports.LevelError, msg, args) }

func (m *Logger) WithComponent(component string) ports.Logger {
	return &Logger{store: m.store, prefix: "[" + component + "] "}
}

func (m *Logger) add(level ports.LogLevel, msg string, args []interface{}) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{Level: level, Message: m.prefix + fmt.Sprintf(msg, args...)})
}

// Entries returns the captured messages at the given level.
func (m *Logger) Entries(level ports.LogLevel) []LogEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []LogEntry
	for _, e := range m.store.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
