package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("parse")
	tm.End(idx, "42 nodes")
	tm.Trial(10 * time.Millisecond)
	tm.Trial(30 * time.Millisecond)

	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Note != "42 nodes" {
		t.Fatalf("phases = %+v", r.Phases)
	}
	if r.Trials != 2 || r.TrialAvgMS != 20 || r.TrialMaxMS != 30 {
		t.Fatalf("trial stats = %+v", r)
	}
	if s := tm.Summary(); !strings.Contains(s, "parse") || !strings.Contains(s, "trials") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Trial(time.Second)
	if r := tm.Report(); r.Trials != 0 || len(r.Phases) != 0 {
		t.Fatalf("nil timer report = %+v", r)
	}
}
