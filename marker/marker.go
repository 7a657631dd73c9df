// Package marker implements the out-of-band password-reset signal as a
// filesystem marker file.
//
// The reset flow is deliberately not reachable from the network surface: an
// operator with shell access to the host touches the marker, and the next
// reset completion consumes it. Presence of the file is the entire state;
// its contents are ignored.
package marker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Marker is the reset-request signal. Implementations must be safe for
// concurrent use; the engine may probe Requested from multiple goroutines.
type Marker interface {
	// Requested reports whether a reset is currently pending.
	Requested(ctx context.Context) (bool, error)
	// Request records a pending reset. Requesting twice is a no-op.
	Request(ctx context.Context) error
	// Clear removes a pending reset and reports whether one existed.
	Clear(ctx context.Context) (bool, error)
}

// FileMarker keeps the reset signal as a file at a fixed path.
type FileMarker struct {
	path string
}

// NewFileMarker creates a [FileMarker] rooted at path. The parent directory
// must exist and be writable by the process.
func NewFileMarker(path string) (*FileMarker, error) {
	if path == "" {
		return nil, errors.New("marker: path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("marker: resolve path: %w", err)
	}
	return &FileMarker{path: abs}, nil
}

// Path returns the absolute marker location, for operator-facing messages.
func (m *FileMarker) Path() string {
	return m.path
}

func (m *FileMarker) Requested(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(m.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("marker: stat: %w", err)
}

func (m *FileMarker) Request(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.WriteFile(m.path, nil, 0o600); err != nil {
		return fmt.Errorf("marker: write: %w", err)
	}
	return nil
}

func (m *FileMarker) Clear(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := os.Remove(m.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("marker: remove: %w", err)
}
