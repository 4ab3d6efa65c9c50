// Package observ measures where a reduction spends its time: the session
// phases and the oracle runs inside the search phase.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase records the duration and metadata of one session phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks session phases and aggregates trial durations. Trial
// recording is safe for concurrent use; phases are begun and ended by the
// session goroutine only.
type Timer struct {
	phases []Phase

	mu       sync.Mutex
	trials   int
	trialSum time.Duration
	trialMax time.Duration
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if t == nil || idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Trial records one oracle run.
func (t *Timer) Trial(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trials++
	t.trialSum += d
	t.trialMax = max(t.trialMax, d)
}

// Summary returns a human-readable table of phases and trial statistics.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	if report.Trials > 0 {
		fmt.Fprintf(&b, "  %-20s %9d    avg %.2f ms, max %.2f ms\n", "trials", report.Trials, report.TrialAvgMS, report.TrialMaxMS)
	}
	return b.String()
}

// PhaseReport is the serialized form of one phase.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report aggregates the timer for reports and summaries.
type Report struct {
	TotalMS    float64       `json:"total_ms" msgpack:"total_ms"`
	Phases     []PhaseReport `json:"phases" msgpack:"phases"`
	Trials     int           `json:"trials" msgpack:"trials"`
	TrialAvgMS float64       `json:"trial_avg_ms" msgpack:"trial_avg_ms"`
	TrialMaxMS float64       `json:"trial_max_ms" msgpack:"trial_max_ms"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)

	t.mu.Lock()
	defer t.mu.Unlock()
	report.Trials = t.trials
	if t.trials > 0 {
		report.TrialAvgMS = durationToMillis(t.trialSum / time.Duration(t.trials))
		report.TrialMaxMS = durationToMillis(t.trialMax)
	}
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
