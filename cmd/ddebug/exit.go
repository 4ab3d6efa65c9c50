package main

import (
	"context"
	"errors"

	"ddebug/internal/oracle"
	"ddebug/internal/reduce"
)

// Process exit codes.
const (
	exitOK      = 0 // minimized, or already minimal
	exitNoRepro = 1 // the initial build does not show the error
	exitProcess = 2 // the build tool could not run
	exitAborted = 3 // cancelled or out of time; a partial result was emitted
	exitFatal   = 4 // parse failure, workspace IO, configuration, usage
)

var errUsage = errors.New("usage")

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, reduce.ErrNoReproduction):
		return exitNoRepro
	case errors.Is(err, oracle.ErrProcessFailure):
		return exitProcess
	case errors.Is(err, reduce.ErrAborted), errors.Is(err, context.Canceled):
		return exitAborted
	default:
		return exitFatal
	}
}
