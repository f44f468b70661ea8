//go:build !cgo

package tsc

import (
	"context"
	"errors"

	"ffigen/internal/frontend"
	"ffigen/internal/source"
)

// ErrNoCGO is returned when the binary was built without cgo, which the
// tree-sitter grammar requires.
var ErrNoCGO = errors.New("tsc: built without cgo; the C parser is unavailable")

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Parse(ctx context.Context, file *source.File) (frontend.Cursor, error) {
	return nil, ErrNoCGO
}
