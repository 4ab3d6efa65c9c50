// Package buildpipeline orchestrates a reduction: it probes the pristine
// build, settles the error signature and the target file, parses the target
// and drives the reduction session.
package buildpipeline

import (
	"context"
	"errors"

	"ddebug/internal/config"
	"ddebug/internal/diag"
	"ddebug/internal/grammar"
	"ddebug/internal/observ"
	"ddebug/internal/oracle"
	"ddebug/internal/reduce"
	"ddebug/internal/source"
	"ddebug/internal/syntax"
)

// Stage names a pipeline phase; stages double as observ.Timer phase names.
type Stage string

const (
	StageProbe    Stage = "probe"
	StageParse    Stage = "parse"
	StageReduce   Stage = "reduce"
	StageValidate Stage = "validate"
)

// ErrNoTarget means no target file was given and none could be derived from
// the initial build's diagnostics.
var ErrNoTarget = errors.New("cannot determine the target file")

// Builder is an oracle that can also report a raw build outcome.
// *oracle.BuildOracle implements it.
type Builder interface {
	oracle.Oracle
	Probe(ctx context.Context, dir string) (*oracle.Outcome, error)
}

// ParseFunc builds the syntax tree of the target file.
type ParseFunc func(ctx context.Context, file *source.File, lang grammar.Language) (*syntax.Tree, error)

// ValidateFunc checks that text still parses.
type ValidateFunc func(ctx context.Context, path string, lang grammar.Language, content []byte) error

// ProbeRequest configures the initial classification.
type ProbeRequest struct {
	ProjectDir  string
	TargetFile  string // absolute or relative to ProjectDir; derived when empty
	TargetError string // --target-error syntax; first error when empty
	Language    grammar.Language
	Config      config.Config

	Builder Builder // built from Config when nil
	Timer   *observ.Timer
}

// ProbeResult is what the pristine build reported and what the reduction
// will preserve.
type ProbeResult struct {
	ProjectDir string // absolute
	Language   grammar.Language
	Builder    Builder
	Command    []string
	Outcome    *oracle.Outcome
	Verdict    oracle.Verdict
	Signature  diag.Signature
	Match      *diag.Diagnostic // the diagnostic the signature was taken from
	TargetFile string           // absolute
	TargetRel  string           // slash-separated, relative to ProjectDir
}

// ReduceRequest configures a full reduction.
type ReduceRequest struct {
	ProbeRequest

	Sink      reduce.ProgressSink
	SessionID string
	Parse     ParseFunc    // grammar.Parse when nil
	Validate  ValidateFunc // grammar.Validate when nil
}

// ReduceResult carries the session result and the artifacts around it.
type ReduceResult struct {
	Probe  ProbeResult
	File   *source.File
	Result *reduce.Result
	// Content is the minimized target file with the original BOM and line
	// endings restored, ready to be written back.
	Content []byte
	// ValidateErr is set when the minimized text no longer parses.
	ValidateErr error
}
