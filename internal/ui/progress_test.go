package ui

import (
	"strings"
	"testing"

	"ddebug/internal/oracle"
	"ddebug/internal/reduce"
)

func TestProgressModelTracksTrials(t *testing.T) {
	m := NewProgressModel("reducing src/main.rs", nil).(*progressModel)
	m.applyEvent(reduce.Event{Kind: reduce.EventPassStart, Pass: 1, Original: 100, Bytes: 100})
	m.applyEvent(reduce.Event{Kind: reduce.EventTrial, Pass: 1, Label: "item fn main() { ...", Verdict: oracle.NoError, Original: 100, Bytes: 100, Trials: 1})
	m.applyEvent(reduce.Event{Kind: reduce.EventTrial, Pass: 1, Label: "declaration let c = a + 1;", Verdict: oracle.Reproduces, Cached: true, Original: 100, Bytes: 75, Trials: 2, Accepted: 1})

	if m.hits != 1 || len(m.recent) != 2 {
		t.Fatalf("hits = %d recent = %d", m.hits, len(m.recent))
	}
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("fraction = %v", got)
	}
	view := m.View()
	for _, want := range []string{"(pass 1)", "removed", "let c = a + 1;", "2 decided"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestProgressModelKeepsRecentWindow(t *testing.T) {
	m := NewProgressModel("t", nil).(*progressModel)
	for range recentTrials + 5 {
		m.applyEvent(reduce.Event{Kind: reduce.EventTrial, Verdict: oracle.OtherError})
	}
	if len(m.recent) != recentTrials {
		t.Fatalf("recent = %d", len(m.recent))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("statement let value = compute(alpha, beta);", 16); got != "statement let..." {
		t.Fatalf("truncate = %q", got)
	}
}
