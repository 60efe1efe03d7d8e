package render

import (
	"fmt"
	"log/slog"
	"os"
)

// TempFiles tracks temporary artifacts created during an extraction run so
// they can be removed once the run finishes. A registry is owned by one
// caller and released with a single deferred Cleanup around the whole
// pipeline invocation; entries are appended linearly so no locking is
// needed.
type TempFiles struct {
	paths []string
}

// NewTempFiles creates an empty registry
func NewTempFiles() *TempFiles {
	return &TempFiles{}
}

// Create creates a tracked temporary file using the given name pattern
func (t *TempFiles) Create(pattern string) (*os.File, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	t.paths = append(t.paths, f.Name())
	return f, nil
}

// Track registers an externally created path for cleanup
func (t *TempFiles) Track(path string) {
	t.paths = append(t.paths, path)
}

// Paths returns the tracked paths in creation order
func (t *TempFiles) Paths() []string {
	paths := make([]string, len(t.paths))
	copy(paths, t.paths)
	return paths
}

// Cleanup removes every tracked artifact that still exists. Deletion
// failures are logged and swallowed; cleanup is best effort.
func (t *TempFiles) Cleanup() {
	for _, path := range t.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Could not delete temporary file", "path", path, "error", err)
		}
	}
	t.paths = nil
}
