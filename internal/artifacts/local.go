package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes artifacts to a local directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local filesystem store rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Write persists the artifact atomically using temp file + rename.
func (s *LocalStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.baseDir, name)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		recordError()
		return fmt.Errorf("write temp file %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on rename failure
		os.Remove(tempPath)
		recordError()
		return fmt.Errorf("rename %s to %s: %w", tempPath, path, err)
	}
	recordWrite(name, len(data))
	return nil
}

// URI returns the absolute path of a named artifact.
func (s *LocalStore) URI(name string) string {
	abs, err := filepath.Abs(filepath.Join(s.baseDir, name))
	if err != nil {
		return filepath.Join(s.baseDir, name)
	}
	return abs
}

// Close is a no-op for the local backend.
func (s *LocalStore) Close() error { return nil }
