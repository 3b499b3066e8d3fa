// Package sink appends waypoint lines to the destination file.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends one line per call to a text file.
//
// The target path is supplied per call because the destination can change
// while the bridge runs. Appends are serialised so concurrent writers never
// interleave within a line.
type FileSink struct {
	mu sync.Mutex
}

// NewFileSink returns a ready sink.
func NewFileSink() *FileSink {
	return &FileSink{}
}

// Append writes line plus a newline to the end of path, creating the parent
// directory and the file when missing.
func (s *FileSink) Append(path, line string) error {
	if path == "" {
		return fmt.Errorf("no destination file configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
