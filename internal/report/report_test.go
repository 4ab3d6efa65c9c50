package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ddebug/internal/diag"
	"ddebug/internal/observ"
	"ddebug/internal/oracle"
	"ddebug/internal/reduce"
	"ddebug/internal/syntax"
	"ddebug/internal/vcache"
)

func sampleResult() *reduce.Result {
	return &reduce.Result{
		SessionID:     "5f0c6a2e",
		Text:          "fn main() {\n    let b = 0;\n    b = 10;\n}\n",
		Removed:       []syntax.NodeID{3, 4},
		Passes:        2,
		Trials:        7,
		Verdicts:      map[oracle.Verdict]int{oracle.Reproduces: 2, oracle.NoError: 4, oracle.OtherError: 1},
		Cache:         vcache.Stats{Hits: 1, Misses: 9, Invocations: 9},
		StopReason:    reduce.StopFixedPoint,
		Minimal:       true,
		Removable:     5,
		OriginalBytes: 80,
		FinalBytes:    42,
		OriginalLines: 6,
		FinalLines:    4,
		Elapsed:       1500 * time.Millisecond,
		Retained: []reduce.Retained{{
			Label: "declaration let b = 0;",
			Users: []string{"statement b = 10;"},
		}},
	}
}

func TestWriteSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	err := WriteSummary(&buf, sampleResult(), SummaryOptions{
		Signature: diag.Signature{Code: "E0384"},
		Target:    "src/main.rs",
		Verbose:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"ddebug: minimized src/main.rs (E0384)",
		"removed 2 of 5 candidates",
		"lines    6 -> 4  (-33.3%)",
		"decided  7   cache hits 1   builds 10",
		"stopped  fixed-point after 1.5s",
		"used by statement b = 10;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary lacks %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryMaxPassesNote(t *testing.T) {
	color.NoColor = true
	res := sampleResult()
	res.StopReason, res.Minimal = reduce.StopMaxPasses, false
	var buf bytes.Buffer
	if err := WriteSummary(&buf, res, SummaryOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "reduced") || !strings.Contains(buf.String(), "may not be 1-minimal") {
		t.Fatalf("summary:\n%s", buf.String())
	}
}

func TestReportRoundTrip(t *testing.T) {
	timer := observ.NewTimer()
	timer.End(timer.Begin("reduce"), "")
	for _, name := range []string{"session.mp", "session.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			rep := New(sampleResult(), Meta{Tool: "ddebug", Target: "src/main.rs", Signature: diag.Signature{Code: "E0384"}, Timer: timer})
			if err := Write(path, rep); err != nil {
				t.Fatal(err)
			}
			got, err := Read(path)
			if err != nil {
				t.Fatal(err)
			}
			if got.Session != "5f0c6a2e" || got.Verdicts["reproduces"] != 2 || got.Builds != 10 || got.Decisions != 7 || len(got.Removed) != 2 {
				t.Fatalf("report = %+v", got)
			}
			if got.Timings == nil || len(got.Timings.Phases) != 1 || got.Text != rep.Text {
				t.Fatalf("timings/text lost: %+v", got)
			}
		})
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rs")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "new" {
		t.Fatalf("content = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestTruncateAndPercent(t *testing.T) {
	got := Truncate("statement let wide = \"日本語日本語\";", 20)
	if runewidth.StringWidth(got) > 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("Truncate = %q", got)
	}
	if Truncate("short", 20) != "short" {
		t.Fatal("short labels must be kept")
	}
	if Percent(0, 0) != "n/a" || Percent(200, 50) != "-75.0%" {
		t.Fatal("Percent")
	}
}
