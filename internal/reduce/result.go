package reduce

import (
	"time"

	"ddebug/internal/oracle"
	"ddebug/internal/syntax"
	"ddebug/internal/vcache"
)

// StopReason tells why a session ended.
type StopReason uint8

const (
	// StopFixedPoint: a pass accepted nothing; the result is 1-minimal.
	StopFixedPoint StopReason = iota + 1
	// StopNothingRemovable: the tree has no removal candidates.
	StopNothingRemovable
	// StopMaxPasses: the pass limit was reached; the result may not be 1-minimal.
	StopMaxPasses
	// StopCancelled: the context was cancelled.
	StopCancelled
	// StopTimeBudget: the configured time budget ran out.
	StopTimeBudget
	// StopFatal: a process failure or workspace error ended the session.
	StopFatal
)

func (r StopReason) String() string {
	switch r {
	case StopFixedPoint:
		return "fixed-point"
	case StopNothingRemovable:
		return "nothing-removable"
	case StopMaxPasses:
		return "max-passes"
	case StopCancelled:
		return "cancelled"
	case StopTimeBudget:
		return "time-budget"
	case StopFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Retained explains a kept declaration that live code still refers to.
type Retained struct {
	Node  syntax.NodeID
	Label string
	Users []string
}

// Result is the outcome of a session. It is always sound: Text reproduces
// the signature error.
type Result struct {
	SessionID  string
	Text       string
	Removed    []syntax.NodeID
	Passes     int
	Trials     int // decided trials; speculative builds are counted in Cache.Invocations
	Verdicts   map[oracle.Verdict]int
	Cache      vcache.Stats
	StopReason StopReason
	Partial    bool
	Minimal    bool
	Retained   []Retained

	Removable     int
	OriginalBytes int
	FinalBytes    int
	OriginalLines int
	FinalLines    int
	Elapsed       time.Duration
}
