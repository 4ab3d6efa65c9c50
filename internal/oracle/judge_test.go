package oracle

import (
	"bytes"
	"testing"

	"ddebug/internal/diag"
)

func TestJudge(t *testing.T) {
	sig := diag.Signature{Code: "E0384"}
	bag := func(ds ...diag.Diagnostic) *diag.Bag {
		b := diag.NewBag(0)
		for _, d := range ds {
			b.Add(d)
		}
		return b
	}
	target := diag.Diagnostic{Severity: diag.SevError, Code: "E0384", Message: "cannot assign twice"}
	other := diag.Diagnostic{Severity: diag.SevError, Code: "E0425", Message: "cannot find value"}
	warn := diag.Diagnostic{Severity: diag.SevWarning, Code: "E0384", Message: "cannot assign twice"}

	tests := []struct {
		name string
		out  Outcome
		want Verdict
	}{
		{"match", Outcome{ExitCode: 101, Diagnostics: bag(other, target)}, Reproduces},
		{"other error", Outcome{ExitCode: 101, Diagnostics: bag(other)}, OtherError},
		{"warning only, success", Outcome{ExitCode: 0, Diagnostics: bag(warn)}, NoError},
		{"failure without diagnostics", Outcome{ExitCode: 2, Diagnostics: bag()}, OtherError},
		{"timeout", Outcome{TimedOut: true}, Timeout},
		{"cancelled", Outcome{Cancelled: true, Diagnostics: bag(target)}, Timeout},
		{"clean", Outcome{Diagnostics: bag()}, NoError},
	}
	for _, tt := range tests {
		if got := Judge(&tt.out, sig); got != tt.want {
			t.Errorf("%s: Judge = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 5}
	n, err := lw.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("first write = %d, %v", n, err)
	}
	n, err = lw.Write([]byte("defgh"))
	if n != 5 || err != nil {
		t.Fatalf("second write = %d, %v", n, err)
	}
	if buf.String() != "abcde" || !lw.truncated {
		t.Fatalf("buffer = %q truncated = %v", buf.String(), lw.truncated)
	}
}

func TestNewBuildOracleValidates(t *testing.T) {
	if _, err := NewBuildOracle(Config{}); err == nil {
		t.Fatal("empty command accepted")
	}
	if _, err := NewBuildOracle(Config{Command: []string{"true"}, Env: []string{"NOVALUE"}}); err == nil {
		t.Fatal("malformed env accepted")
	}
	o, err := NewBuildOracle(Config{Command: []string{"true"}})
	if err != nil {
		t.Fatal(err)
	}
	if o.Config().Timeout != DefaultTimeout || o.Config().MaxOutput != DefaultMaxOutput {
		t.Fatalf("defaults not applied: %+v", o.Config())
	}
}

func TestDefaultProfile(t *testing.T) {
	rust := DefaultProfile("rust")
	if rust.Command[0] != "cargo" || rust.Format != diag.FormatCargoJSON || rust.Env[0] != "CARGO_TARGET_DIR={cache}" {
		t.Fatalf("rust profile = %+v", rust)
	}
	if g := DefaultProfile("go"); g.Command[0] != "go" || g.Format != diag.FormatGo {
		t.Fatalf("go profile = %+v", g)
	}
}
