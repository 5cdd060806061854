package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogSuffix ends every session log file name.
const LogSuffix = "-session.jsonl"

// Logger receives session events. *JSONLogger and NopLogger satisfy it.
type Logger interface {
	Log(event Event) error
	Close() error
}

// JSONLogger appends one JSON object per line to a session file, one Write
// per event.
type JSONLogger struct {
	path string

	mu     sync.Mutex
	f      *os.File
	closed bool
}

// NewJSONLogger creates path and its directory. The file must not exist.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating session log: %w", err)
	}
	return &JSONLogger{path: path, f: f}, nil
}

func (l *JSONLogger) Log(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return os.ErrClosed
	}
	_, err = l.f.Write(line)
	return err
}

// Close syncs the file to disk. Further Log calls fail.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	syncErr := l.f.Sync()
	if err := l.f.Close(); err != nil {
		return err
	}
	return syncErr
}

func (l *JSONLogger) Path() string { return l.path }

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) Log(Event) error { return nil }
func (NopLogger) Close() error    { return nil }

// DefaultLogPath returns the session log path for a run started at.
func DefaultLogPath(dir string, at time.Time) string {
	return filepath.Join(dir, at.UTC().Format("20060102T150405Z")+LogSuffix)
}
