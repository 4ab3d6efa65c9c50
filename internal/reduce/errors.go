package reduce

import "errors"

var (
	// ErrNoReproduction reports that the unmodified program does not exhibit
	// the signature error.
	ErrNoReproduction = errors.New("original program does not reproduce the target error")
	// ErrAborted reports a session stopped by cancellation or its time budget.
	// The accompanying Result is partial but sound.
	ErrAborted = errors.New("reduction aborted")

	errTimeBudget = errors.New("time budget exhausted")
)
