// Package datasource abstracts where the district table is read from.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw district table for reading. Name identifies the
// source in logs and in the run summary.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}
