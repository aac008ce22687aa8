// Package datasource defines where raw input bytes come from. The loader
// opens one Source per discovered file.
package datasource

import (
	"context"
	"io"
)

// Source opens a stream of raw bytes. Name identifies the source in errors
// and progress output (for files, the absolute path).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
