package testkit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ddebug/internal/diag"
	"ddebug/internal/oracle"
)

// TextOracle classifies a workspace by applying Judge to the text of its
// target file. It counts invocations and can simulate slow builds.
type TextOracle struct {
	Target string // target path relative to the workspace
	Judge  func(text string) oracle.Verdict
	Delay  time.Duration // per-call latency, honoring cancellation

	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64

	mu   sync.Mutex
	seen map[string]int
}

func (o *TextOracle) Classify(ctx context.Context, dir string, _ diag.Signature) (oracle.Verdict, error) {
	o.calls.Add(1)
	cur := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		p := o.peak.Load()
		if cur <= p || o.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(o.Target)))
	if err != nil {
		return oracle.ProcessFailure, err
	}
	text := string(data)

	o.mu.Lock()
	if o.seen == nil {
		o.seen = make(map[string]int)
	}
	o.seen[text]++
	o.mu.Unlock()

	if o.Delay > 0 {
		select {
		case <-time.After(o.Delay):
		case <-ctx.Done():
			return oracle.Timeout, nil
		}
	}
	return o.Judge(text), nil
}

// Calls returns the number of Classify invocations.
func (o *TextOracle) Calls() int { return int(o.calls.Load()) }

// Peak returns the highest number of concurrent Classify calls observed.
func (o *TextOracle) Peak() int { return int(o.peak.Load()) }

// Repeats returns how many distinct texts were classified more than once.
func (o *TextOracle) Repeats() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.seen {
		if c > 1 {
			n++
		}
	}
	return n
}

// ScenarioSource is the classic reassignment case: the immutable `b` is
// assigned twice, and `a`/`c` are irrelevant.
const ScenarioSource = `fn main() {
    let b = 0;
    let a = 0;
    let c = a + 1;
    b = 10;
}
`

// ScenarioMinimal is what ScenarioSource reduces to.
const ScenarioMinimal = `fn main() {
    let b = 0;
    b = 10;
}
`

// ScenarioJudge imitates rustc on the scenario family of programs.
func ScenarioJudge(text string) oracle.Verdict {
	hasLet := strings.Contains(text, "let b = 0;")
	hasAssign := strings.Contains(text, "b = 10;")
	switch {
	case !strings.Contains(text, "fn main"):
		return oracle.OtherError
	case hasAssign && !hasLet:
		return oracle.OtherError
	case hasLet && hasAssign:
		return oracle.Reproduces
	default:
		return oracle.NoError
	}
}

// ContainsAll reproduces while every marker is present and the text still
// has the given prefix; anything else is an OtherError.
func ContainsAll(prefix string, markers ...string) func(string) oracle.Verdict {
	return func(text string) oracle.Verdict {
		if !strings.HasPrefix(strings.TrimSpace(text), prefix) {
			return oracle.OtherError
		}
		for _, m := range markers {
			if !strings.Contains(text, m) {
				return oracle.NoError
			}
		}
		return oracle.Reproduces
	}
}
