package reduce

import (
	"time"

	"ddebug/internal/oracle"
	"ddebug/internal/syntax"
)

// EventKind tells what an Event reports.
type EventKind uint8

const (
	EventStart EventKind = iota + 1
	EventPassStart
	EventTrial
	EventPassEnd
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventPassStart:
		return "pass-start"
	case EventTrial:
		return "trial"
	case EventPassEnd:
		return "pass-end"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event reports session progress. Events are delivered from the session
// goroutine in decision order.
type Event struct {
	Kind      EventKind
	Pass      int
	Node      syntax.NodeID
	Label     string
	Verdict   oracle.Verdict
	Cached    bool
	Accepted  int // accepted removals so far
	Trials    int // trials decided so far
	Removable int // removable nodes in the tree
	Bytes     int // current program size
	Original  int // original program size
	Elapsed   time.Duration
	Result    *Result // set on EventDone
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
