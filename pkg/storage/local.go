package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local implements Store on the local filesystem.
type Local struct {
	basePath string
}

// NewLocal creates a local store rooted at basePath, creating it if needed.
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

// Write stores the content under a sanitized file name. The file is written
// to a temporary name first and renamed into place, so a crashed run never
// leaves a truncated report behind.
func (s *Local) Write(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	finalPath := filepath.Join(s.basePath, sanitizeFilename(name))

	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to place file: %w", err)
	}
	return finalPath, nil
}

// sanitizeFilename keeps a name safe for the local filesystem.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(" ", "_", ":", "_", "\\", "_")
	return replacer.Replace(name)
}
