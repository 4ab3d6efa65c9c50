package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ddebug/internal/config"
	"ddebug/internal/diag"
	"ddebug/internal/grammar"
	"ddebug/internal/oracle"
	"ddebug/internal/reduce"
	"ddebug/internal/trace"
	"ddebug/internal/workspace"
)

// Probe builds an unmodified copy of the project once, settles the error
// signature and the target file, and checks that the build reproduces the
// signature. A build that does not is reported as reduce.ErrNoReproduction.
func Probe(ctx context.Context, req *ProbeRequest) (ProbeResult, error) {
	var res ProbeResult
	if req == nil {
		return res, fmt.Errorf("missing probe request")
	}
	ctx, span := trace.Start(ctx, trace.ScopeSession, string(StageProbe))
	defer span.End("")
	phase := req.Timer.Begin(string(StageProbe))
	defer req.Timer.End(phase, "")

	projectDir := req.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	project, err := filepath.Abs(projectDir)
	if err != nil {
		return res, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if info, err := os.Stat(project); err != nil || !info.IsDir() {
		return res, fmt.Errorf("%w: project directory %s", workspace.ErrIO, project)
	}
	res.ProjectDir = project

	targetFile := req.TargetFile
	if targetFile == "" {
		targetFile = req.Config.Workspace.TargetFile
	}
	lang, err := resolveLanguage(req.Language, req.Config.Oracle.Language, targetFile, project)
	if err != nil {
		return res, err
	}
	res.Language = lang

	builder := req.Builder
	if builder == nil {
		bo, err := NewBuilder(req.Config, lang)
		if err != nil {
			return res, err
		}
		builder = bo
		res.Command = bo.Config().Command
	}
	res.Builder = builder

	mgr, err := workspace.NewManager(workspace.Options{
		ProjectDir: project,
		TempDir:    req.Config.Workspace.TempDir,
		Exclude:    req.Config.Workspace.Exclude,
		SessionID:  "probe",
	})
	if err != nil {
		return res, err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			trace.Point(ctx, trace.ScopeSession, "workspace-close", err.Error())
		}
	}()
	ws, err := mgr.Snapshot(ctx, 0)
	if err != nil {
		return res, err
	}
	cacheDir, err := mgr.CacheDir(0)
	if err != nil {
		return res, err
	}

	out, err := builder.Probe(oracle.WithCacheDir(ctx, cacheDir), ws.Dir)
	if err != nil {
		return res, err
	}
	res.Outcome = out
	switch {
	case out.Cancelled:
		return res, fmt.Errorf("%w: cancelled during the initial build", reduce.ErrAborted)
	case out.TimedOut:
		return res, fmt.Errorf("%w: the initial build timed out after %s", reduce.ErrNoReproduction, out.Duration.Round(time.Second))
	}
	relativize(out, ws.Dir)

	spec := req.TargetError
	if spec == "" {
		spec = req.Config.Oracle.TargetError
	}
	sig, match, err := pickSignature(spec, out.Diagnostics)
	if err != nil {
		return res, err
	}
	res.Signature, res.Match = sig, match

	switch {
	case targetFile != "":
		if !filepath.IsAbs(targetFile) {
			targetFile = filepath.Join(project, targetFile)
		}
	case match.File != "":
		targetFile = filepath.Join(project, filepath.FromSlash(match.File))
	default:
		return res, fmt.Errorf("%w: the %s error has no source location; pass --target-file", ErrNoTarget, sig)
	}
	rel, err := filepath.Rel(project, targetFile)
	if err != nil || strings.HasPrefix(rel, "..") {
		return res, fmt.Errorf("%w: %s is outside the project", ErrNoTarget, targetFile)
	}
	if info, err := os.Stat(targetFile); err != nil || info.IsDir() {
		return res, fmt.Errorf("%w: %s is not a file", ErrNoTarget, targetFile)
	}
	res.TargetFile, res.TargetRel = targetFile, filepath.ToSlash(rel)

	res.Verdict = oracle.Judge(out, sig)
	span.Set(trace.Str("signature", sig.String()), trace.Str("verdict", res.Verdict.String()))
	if res.Verdict != oracle.Reproduces {
		return res, fmt.Errorf("%w: the initial build is %s", reduce.ErrNoReproduction, res.Verdict)
	}
	return res, nil
}

// NewBuilder builds the oracle for lang from cfg: the language profile
// unless [oracle].command overrides it.
func NewBuilder(cfg config.Config, lang grammar.Language) (*oracle.BuildOracle, error) {
	profile := oracle.DefaultProfile(lang.String())
	command, env, format := profile.Command, profile.Env, profile.Format
	if len(cfg.Oracle.Command) > 0 {
		command, env, format = cfg.Oracle.Command, nil, diag.FormatAuto
	}
	if f, err := diag.ParseFormat(cfg.Oracle.Format); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	} else if f != diag.FormatAuto {
		format = f
	}
	bo, err := oracle.NewBuildOracle(oracle.Config{
		Command:   command,
		Env:       append(env, cfg.EnvList()...),
		Timeout:   time.Duration(cfg.Oracle.Timeout),
		MaxOutput: cfg.Oracle.MaxOutput,
		Format:    format,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	return bo, nil
}

func pickSignature(spec string, bag *diag.Bag) (diag.Signature, *diag.Diagnostic, error) {
	var errs []diag.Diagnostic
	if bag != nil {
		errs = bag.Errors()
	}
	if spec == "" {
		if len(errs) == 0 {
			return diag.Signature{}, nil, fmt.Errorf("%w: the initial build reported no errors", reduce.ErrNoReproduction)
		}
		first := &errs[0]
		return diag.SignatureOf(first), first, nil
	}
	sig, err := diag.ParseSignature(spec)
	if err != nil {
		return diag.Signature{}, nil, fmt.Errorf("%w: --target-error: %w", config.ErrConfig, err)
	}
	d, ok := sig.MatchAny(errs)
	if !ok {
		return sig, nil, fmt.Errorf("%w: no error matching %s among %d reported", reduce.ErrNoReproduction, sig, len(errs))
	}
	return sig, d, nil
}

// relativize rewrites diagnostic paths under the probe workspace to
// project-relative ones.
func relativize(out *oracle.Outcome, wsDir string) {
	if out.Diagnostics == nil {
		return
	}
	prefix := filepath.ToSlash(wsDir) + "/"
	items := out.Diagnostics.Items()
	for i := range items {
		items[i].File = strings.TrimPrefix(filepath.ToSlash(items[i].File), prefix)
	}
}

// resolveLanguage prefers an explicit choice, then the config, then the
// target's extension, then the project's build manifest.
func resolveLanguage(explicit grammar.Language, configured, target, project string) (grammar.Language, error) {
	if explicit != grammar.LangUnknown {
		return explicit, nil
	}
	lang, err := grammar.ParseLanguage(configured)
	if err != nil {
		return lang, fmt.Errorf("%w: [oracle].language: %w", config.ErrConfig, err)
	}
	if lang != grammar.LangUnknown {
		return lang, nil
	}
	if target != "" {
		if lang := grammar.Detect(target); lang != grammar.LangUnknown {
			return lang, nil
		}
	}
	for _, m := range []struct {
		name string
		lang grammar.Language
	}{
		{"Cargo.toml", grammar.LangRust},
		{"go.mod", grammar.LangGo},
	} {
		if _, err := os.Stat(filepath.Join(project, m.name)); err == nil {
			return m.lang, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return grammar.LangUnknown, fmt.Errorf("%w: %w", workspace.ErrIO, err)
		}
	}
	return grammar.LangUnknown, fmt.Errorf("%w: cannot detect the project language; pass --language", grammar.ErrUnsupported)
}
