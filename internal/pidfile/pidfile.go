// Package pidfile reads, writes and waits for PID files.
package pidfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ErrInvalidPID is returned when the PID file contains invalid data.
var ErrInvalidPID = errors.New("invalid PID in file")

// FileMode is the permission of written PID files.
const FileMode = 0o644

// Write replaces the content of path with pid.
func Write(path string, pid int) error {
	if err := writeFile(path, []byte(strconv.Itoa(pid)+"\n")); err != nil {
		return fmt.Errorf("cannot write PID file %s: %w", path, err)
	}
	return nil
}

// Read reads the PID from path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	s := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, s)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: PID must be positive, got %d", ErrInvalidPID, pid)
	}
	return pid, nil
}

// Remove deletes path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove PID file %s: %w", path, err)
	}
	return nil
}

// Wait blocks until path holds a valid PID and returns it. The parent
// directory of path must exist.
func Wait(ctx context.Context, path string) (int, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return 0, err
	}

	// the file may have been written before the watch was set up
	if pid, err := Read(path); err == nil {
		return pid, nil
	}

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return 0, errors.New("pidfile: watcher closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pid, err := Read(path); err == nil {
				return pid, nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return 0, errors.New("pidfile: watcher closed")
			}
			if err != nil {
				return 0, err
			}
		}
	}
}
