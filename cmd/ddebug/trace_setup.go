package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ddebug/internal/trace"
)

// activeRecorder is installed by setupTracing; the ring dump on failure
// reads from it.
var activeRecorder *trace.Recorder

// setupTracing reads the trace flags, installs a recorder in the command
// context and returns its cleanup.
func setupTracing(cmd *cobra.Command) (func(), error) {
	pf := cmd.Root().PersistentFlags()
	output, err := pf.GetString("trace")
	if err != nil {
		return nil, err
	}
	levelStr, err := pf.GetString("trace-level")
	if err != nil {
		return nil, err
	}
	modeStr, err := pf.GetString("trace-mode")
	if err != nil {
		return nil, err
	}
	formatStr, err := pf.GetString("trace-format")
	if err != nil {
		return nil, err
	}
	ringSize, err := pf.GetInt("trace-ring-size")
	if err != nil {
		return nil, err
	}
	pulse, err := pf.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, err
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	// --trace alone implies the phase level.
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	// The error level only makes sense as a crash ring.
	if level == trace.LevelError && !pf.Changed("trace-mode") {
		mode = trace.ModeRing
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	rec, err := trace.Open(trace.Options{
		Level:    level,
		Mode:     mode,
		Format:   format,
		Path:     output,
		RingSize: ringSize,
		Pulse:    pulse,
	})
	if err != nil {
		return nil, err
	}
	activeRecorder = rec

	ctx := trace.WithTracer(cmd.Context(), rec)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	return func() {
		if err := rec.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
	}, nil
}
