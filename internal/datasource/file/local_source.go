// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local reads the district table from a file on disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the configured path.
func (l *Local) Name() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled or past its deadline, Open returns
//     the context error without touching the filesystem.
//   - Otherwise the file is opened as-is. No decoding happens here; a
//     non-UTF-8 table is converted later by datasource.Decode.
//   - Filesystem errors are wrapped with the path and still match
//     errors.Is(err, os.ErrNotExist) and friends.
//
// The caller closes the returned reader.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
