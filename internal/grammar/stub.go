//go:build !cgo

package grammar

import (
	"context"

	"ddebug/internal/source"
	"ddebug/internal/syntax"
)

// Parse is unavailable without CGO.
func Parse(ctx context.Context, file *source.File, lang Language) (*syntax.Tree, error) {
	return nil, ErrNoCGO
}

// Validate is unavailable without CGO.
func Validate(ctx context.Context, path string, lang Language, content []byte) error {
	return ErrNoCGO
}
