// Package oracle decides whether a materialized candidate still exhibits the
// target compiler error by running the build and decoding its diagnostics.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"ddebug/internal/diag"
)

// Verdict classifies one trial.
type Verdict uint8

const (
	// Reproduces means an error matching the signature was reported.
	Reproduces Verdict = iota
	// OtherError means the build failed without the target error.
	OtherError
	// NoError means the build succeeded.
	NoError
	// Timeout means the build exceeded its deadline or was cancelled.
	Timeout
	// ProcessFailure means the build command itself could not run.
	ProcessFailure
)

func (v Verdict) String() string {
	switch v {
	case Reproduces:
		return "reproduces"
	case OtherError:
		return "other-error"
	case NoError:
		return "no-error"
	case Timeout:
		return "timeout"
	case ProcessFailure:
		return "process-failure"
	default:
		return fmt.Sprintf("verdict(%d)", uint8(v))
	}
}

// ErrProcessFailure is wrapped by every *ProcessError.
var ErrProcessFailure = errors.New("build process failure")

// ProcessError reports a build command that could not start or died from a
// signal the oracle did not send.
type ProcessError struct {
	Command string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("build command %q: %v", e.Command, e.Err)
}

func (e *ProcessError) Unwrap() []error { return []error{ErrProcessFailure, e.Err} }

// Oracle classifies the project materialized in dir.
type Oracle interface {
	Classify(ctx context.Context, dir string, sig diag.Signature) (Verdict, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, dir string, sig diag.Signature) (Verdict, error)

func (f Func) Classify(ctx context.Context, dir string, sig diag.Signature) (Verdict, error) {
	return f(ctx, dir, sig)
}

type cacheDirKey struct{}

// WithCacheDir attaches the per-slot build cache directory substituted for
// the {cache} placeholder.
func WithCacheDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, cacheDirKey{}, dir)
}

// CacheDirFrom returns the directory set by WithCacheDir, or "".
func CacheDirFrom(ctx context.Context) string {
	dir, _ := ctx.Value(cacheDirKey{}).(string)
	return dir
}
