//go:build unix

package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ddebug/internal/diag"
)

func shOracle(t *testing.T, script string, timeout time.Duration, env ...string) *BuildOracle {
	t.Helper()
	o, err := NewBuildOracle(Config{
		Command: []string{"sh", "-c", script},
		Env:     env,
		Timeout: timeout,
		Format:  diag.FormatGo,
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestClassifyDecodesBuildOutput(t *testing.T) {
	o := shOracle(t, `echo "./main.go:3:2: declared and not used: a" >&2; exit 1`, 10*time.Second)
	ctx := context.Background()
	dir := t.TempDir()

	v, err := o.Classify(ctx, dir, diag.Signature{Fragment: "declared and not used"})
	if err != nil || v != Reproduces {
		t.Fatalf("Classify = %s, %v; want reproduces", v, err)
	}
	v, err = o.Classify(ctx, dir, diag.Signature{Fragment: "undefined"})
	if err != nil || v != OtherError {
		t.Fatalf("Classify = %s, %v; want other-error", v, err)
	}

	out, err := o.Probe(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.ExitCode != 1 || out.Diagnostics.Len() != 1 {
		t.Fatalf("probe outcome: exit %d, %d diagnostics", out.ExitCode, out.Diagnostics.Len())
	}
}

func TestClassifySuccess(t *testing.T) {
	o := shOracle(t, "exit 0", 10*time.Second)
	if v, err := o.Classify(context.Background(), t.TempDir(), diag.Signature{}); err != nil || v != NoError {
		t.Fatalf("Classify = %s, %v; want no-error", v, err)
	}
}

func TestClassifyTimeoutKillsGroup(t *testing.T) {
	o := shOracle(t, "sleep 30 & sleep 30", 200*time.Millisecond)
	start := time.Now()
	v, err := o.Classify(context.Background(), t.TempDir(), diag.Signature{})
	if err != nil || v != Timeout {
		t.Fatalf("Classify = %s, %v; want timeout", v, err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("timeout took %s; process group was not killed", elapsed)
	}
}

func TestClassifyCancelledIsTimeout(t *testing.T) {
	o := shOracle(t, "sleep 30", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	if v, err := o.Classify(ctx, t.TempDir(), diag.Signature{}); err != nil || v != Timeout {
		t.Fatalf("Classify = %s, %v; want timeout", v, err)
	}
}

func TestClassifyMissingCommand(t *testing.T) {
	o, err := NewBuildOracle(Config{Command: []string{"ddebug-no-such-compiler"}})
	if err != nil {
		t.Fatal(err)
	}
	v, err := o.Classify(context.Background(), t.TempDir(), diag.Signature{})
	var pe *ProcessError
	if v != ProcessFailure || !errors.As(err, &pe) || !errors.Is(err, ErrProcessFailure) {
		t.Fatalf("Classify = %s, %v; want process failure", v, err)
	}
}

func TestClassifyForeignSignal(t *testing.T) {
	o := shOracle(t, "kill -9 $$", 10*time.Second)
	v, err := o.Classify(context.Background(), t.TempDir(), diag.Signature{})
	if v != ProcessFailure || !errors.Is(err, ErrProcessFailure) {
		t.Fatalf("Classify = %s, %v; want process failure", v, err)
	}
}

func TestPlaceholders(t *testing.T) {
	dir := t.TempDir()
	cache := t.TempDir()
	o := shOracle(t, `touch "$MARK" && touch "{dir}/in-dir"`, 10*time.Second, "MARK={cache}/marker")
	ctx := WithCacheDir(context.Background(), cache)
	if v, err := o.Classify(ctx, dir, diag.Signature{}); err != nil || v != NoError {
		t.Fatalf("Classify = %s, %v", v, err)
	}
	for _, p := range []string{filepath.Join(cache, "marker"), filepath.Join(dir, "in-dir")} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("placeholder not expanded: %v", err)
		}
	}
}
