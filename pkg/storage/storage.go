// Package storage provides the output file store for generated reports.
package storage

import (
	"context"
	"io"
)

// Store writes named report files to their destination.
type Store interface {
	// Write stores the content under name and returns the final path.
	Write(ctx context.Context, name string, r io.Reader) (string, error)
}
