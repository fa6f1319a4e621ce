// Package embedded serves a district table compiled into the binary.
package embedded

import (
	"context"
	"io"
	"strings"

	"ubigeo/internal/dataset"
)

// Text is a data source backed by an in-memory string.
type Text struct {
	name string
	text string
}

// New returns a source serving text under the given name.
func New(name, text string) *Text { return &Text{name: name, text: text} }

// Default returns the source for the table shipped with the binary.
func Default() *Text { return New(dataset.Name, dataset.Text()) }

func (t *Text) Name() string { return t.name }

// Open returns a reader over the text. It fails only when ctx is done.
func (t *Text) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(t.text)), nil
}
