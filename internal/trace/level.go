package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // ring only, dumped on failure
	LevelPhase        // session phases and pass boundaries
	LevelDetail       // plus trials
	LevelDebug        // plus node decisions
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames[:], "|"))
}

// prints reports whether events of scope are written out at this level.
func (l Level) prints(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePass
	case LevelDetail:
		return scope <= ScopeTrial
	case LevelDebug:
		return true
	}
	return false
}

// Keeps reports whether events of scope are recorded at all.
func (l Level) Keeps(scope Scope) bool {
	if l == LevelError {
		return scope <= ScopeTrial
	}
	return l.prints(scope)
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeSession Scope = iota + 1
	ScopePass
	ScopeTrial
	ScopeNode
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopePass:
		return "pass"
	case ScopeTrial:
		return "trial"
	case ScopeNode:
		return "node"
	}
	return "unknown"
}
