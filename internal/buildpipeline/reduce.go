package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ddebug/internal/config"
	"ddebug/internal/grammar"
	"ddebug/internal/reduce"
	"ddebug/internal/source"
	"ddebug/internal/syntax"
	"ddebug/internal/trace"
	"ddebug/internal/workspace"
)

// Reduce probes the project, parses the target file and minimizes it. The
// result is returned alongside the error whenever a session ran, so callers
// can emit a partial result.
func Reduce(ctx context.Context, req *ReduceRequest) (ReduceResult, error) {
	var result ReduceResult
	if req == nil {
		return result, fmt.Errorf("missing reduce request")
	}
	cfg := req.Config
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	probe, err := Probe(ctx, &req.ProbeRequest)
	result.Probe = probe
	if err != nil {
		return result, err
	}

	phase := req.Timer.Begin(string(StageParse))
	file, err := source.Load(probe.TargetFile)
	if err != nil {
		req.Timer.End(phase, "")
		return result, &workspace.IOError{Op: "read", Path: probe.TargetFile, Err: err}
	}
	result.File = file
	parse := req.Parse
	if parse == nil {
		parse = grammar.Parse
	}
	tree, err := parse(ctx, file, probe.Language)
	if err != nil {
		req.Timer.End(phase, "")
		return result, err
	}
	req.Timer.End(phase, strconv.Itoa(tree.Len())+" nodes")
	trace.Point(ctx, trace.ScopeSession, "parsed", probe.TargetRel,
		trace.Int("nodes", tree.Len()), trace.Int("removable", len(tree.Removable())))

	mgr, err := workspace.NewManager(workspace.Options{
		ProjectDir: probe.ProjectDir,
		Target:     probe.TargetRel,
		TempDir:    cfg.Workspace.TempDir,
		Exclude:    cfg.Workspace.Exclude,
		SessionID:  sessionID,
	})
	if err != nil {
		return result, err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			trace.Point(ctx, trace.ScopeSession, "workspace-close", err.Error())
		}
	}()

	opts, err := sessionOptions(cfg)
	if err != nil {
		return result, err
	}
	opts.Tree = tree
	opts.Signature = probe.Signature
	opts.Oracle = probe.Builder
	opts.Workspaces = mgr
	opts.Sink = req.Sink
	opts.Timer = req.Timer
	opts.SessionID = sessionID
	session, err := reduce.NewSession(opts)
	if err != nil {
		return result, err
	}

	phase = req.Timer.Begin(string(StageReduce))
	res, runErr := session.Run(ctx)
	result.Result = res
	if res == nil {
		req.Timer.End(phase, "")
		return result, runErr
	}
	req.Timer.End(phase, res.StopReason.String())
	result.Content = file.Restore([]byte(res.Text))

	phase = req.Timer.Begin(string(StageValidate))
	validate := req.Validate
	if validate == nil {
		validate = grammar.Validate
	}
	// The minimized text is validated even when the session was cancelled.
	vctx := context.WithoutCancel(ctx)
	if err := validate(vctx, probe.TargetFile, probe.Language, []byte(res.Text)); err != nil && !errors.Is(err, grammar.ErrNoCGO) {
		result.ValidateErr = err
	}
	req.Timer.End(phase, "")
	return result, runErr
}

func sessionOptions(cfg config.Config) (reduce.Options, error) {
	metric, err := syntax.ParseSizeMetric(cfg.Search.SizeMetric)
	if err != nil {
		return reduce.Options{}, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	grace := time.Duration(cfg.Search.Grace)
	if grace == 0 {
		grace = -1 // an explicit "0s" means no grace at all
	}
	return reduce.Options{
		Concurrency: cfg.Search.Concurrency,
		MaxPasses:   cfg.Search.MaxPasses,
		SizeMetric:  metric,
		Grace:       grace,
		TimeBudget:  time.Duration(cfg.Search.TimeBudget),
	}, nil
}
