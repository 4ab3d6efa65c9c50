package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"ddebug/internal/diag"
)

const (
	DefaultTimeout   = 2 * time.Minute
	DefaultMaxOutput = 8 << 20
)

// Config configures a BuildOracle. Command and Env entries may contain the
// placeholders {dir} (workspace directory) and {cache} (per-slot cache).
type Config struct {
	Command        []string
	Env            []string // extra "KEY=VALUE" entries appended to the environment
	Timeout        time.Duration
	MaxOutput      int
	Format         diag.Format
	MaxDiagnostics int
}

// Outcome is the raw result of one build.
type Outcome struct {
	ExitCode    int
	Output      []byte
	Truncated   bool
	TimedOut    bool
	Cancelled   bool
	Duration    time.Duration
	Diagnostics *diag.Bag
}

// BuildOracle runs a real build command.
type BuildOracle struct {
	cfg Config
}

// NewBuildOracle validates cfg and fills defaults.
func NewBuildOracle(cfg Config) (*BuildOracle, error) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		return nil, errors.New("oracle: empty build command")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	for _, kv := range cfg.Env {
		if !strings.Contains(kv, "=") {
			return nil, fmt.Errorf("oracle: env entry %q is not KEY=VALUE", kv)
		}
	}
	return &BuildOracle{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (o *BuildOracle) Config() Config { return o.cfg }

// Classify builds dir and judges the outcome against sig.
func (o *BuildOracle) Classify(ctx context.Context, dir string, sig diag.Signature) (Verdict, error) {
	out, err := o.Run(ctx, dir)
	if err != nil {
		return ProcessFailure, err
	}
	return Judge(out, sig), nil
}

// Probe builds the pristine project once and returns everything it reported.
func (o *BuildOracle) Probe(ctx context.Context, dir string) (*Outcome, error) {
	return o.Run(ctx, dir)
}

// Run executes the build command in dir. The returned error is non-nil only
// for process failures; timeouts and cancellations are reported in Outcome.
func (o *BuildOracle) Run(ctx context.Context, dir string) (*Outcome, error) {
	cacheDir := CacheDirFrom(ctx)
	if cacheDir == "" {
		cacheDir = dir
	}
	expand := strings.NewReplacer("{dir}", dir, "{cache}", cacheDir).Replace

	args := make([]string, len(o.cfg.Command))
	for i, a := range o.cfg.Command {
		args[i] = expand(a)
	}
	name := strings.Join(args, " ")

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	// #nosec G204 -- the build command is user configuration
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for _, kv := range o.cfg.Env {
		cmd.Env = append(cmd.Env, expand(kv))
	}
	cmd.WaitDelay = 2 * time.Second
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, limit: o.cfg.MaxOutput}
	stderrLimited := &limitedWriter{w: &stderr, limit: o.cfg.MaxOutput}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	start := time.Now()
	err := cmd.Run()
	out := &Outcome{
		Duration:  time.Since(start),
		Truncated: stdoutLimited.truncated || stderrLimited.truncated,
	}
	out.Output = append(stdout.Bytes(), '\n')
	out.Output = append(out.Output, stderr.Bytes()...)

	switch {
	case ctx.Err() != nil:
		out.Cancelled = true
		out.ExitCode = -1
		return out, nil
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		out.TimedOut = true
		out.ExitCode = -1
		return out, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return out, &ProcessError{Command: name, Err: err}
		}
		if sig, ok := signaled(exitErr.ProcessState); ok {
			return out, &ProcessError{Command: name, Err: fmt.Errorf("terminated by signal %v", sig)}
		}
		out.ExitCode = exitErr.ExitCode()
	}

	out.Diagnostics = diag.Decode(o.cfg.Format, out.Output, o.cfg.MaxDiagnostics)
	return out, nil
}

// Judge maps a build outcome to a verdict.
func Judge(out *Outcome, sig diag.Signature) Verdict {
	if out.TimedOut || out.Cancelled {
		return Timeout
	}
	if out.Diagnostics != nil {
		if _, ok := sig.MatchAny(out.Diagnostics.Items()); ok {
			return Reproduces
		}
		if out.Diagnostics.HasErrors() {
			return OtherError
		}
	}
	if out.ExitCode != 0 {
		return OtherError
	}
	return NoError
}
