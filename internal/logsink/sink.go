// Package logsink provides the process logging destination: a writer that
// can be redirected to a file at runtime and a slog handler on top of it
// whose timestamps can be switched on and off.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Mode is the open mode of a log file.
type Mode int

const (
	// Default lets the caller pick the mode (see Mode.Or).
	Default Mode = iota
	// Truncate empties the log file on open.
	Truncate
	// Append keeps the existing content of the log file.
	Append
)

// Or returns m, or def if m is Default.
func (m Mode) Or(def Mode) Mode {
	if m == Default {
		return def
	}
	return m
}

func (m Mode) String() string {
	switch m {
	case Truncate:
		return "truncate"
	case Append:
		return "append"
	case Default:
		fallthrough
	default:
		return "default"
	}
}

func (m Mode) flags() int {
	if m == Append {
		return os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.O_CREATE | os.O_WRONLY | os.O_TRUNC
}

// FileMode is the permission of created log files.
const FileMode = 0o640

// Sink is an io.Writer whose destination can be swapped.
type Sink struct {
	mu   sync.Mutex
	w    io.Writer
	file *os.File

	timestamps atomic.Bool
}

// New returns a sink writing to w with timestamps enabled.
func New(w io.Writer) *Sink {
	s := &Sink{w: w}
	s.timestamps.Store(true)
	return s
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Redirect opens path with mode and makes it the destination. The previous
// destination is closed if the sink opened it. On failure the destination is
// left unchanged.
func (s *Sink) Redirect(path string, mode Mode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot redirect log to %s: %w", path, err)
	}
	f, err := os.OpenFile(path, mode.flags(), FileMode)
	if err != nil {
		return fmt.Errorf("cannot redirect log to %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.file
	s.w, s.file = f, f
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// SetTimestamps switches the "now" prefix of log records.
func (s *Sink) SetTimestamps(on bool) { s.timestamps.Store(on) }

// Timestamps reports whether log records carry the current time.
func (s *Sink) Timestamps() bool { return s.timestamps.Load() }

// Close closes the log file opened by Redirect, if any.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.w, s.file = io.Discard, nil
	return err
}
