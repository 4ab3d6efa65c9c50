package trace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase tells what an event marks.
type Phase uint8

const (
	PhaseOpen  Phase = iota + 1 // a span starts
	PhaseClose                  // a span ends; Elapsed is set
	PhaseMark                   // an instant
	PhasePulse                  // liveness tick
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseClose:
		return "close"
	case PhaseMark:
		return "mark"
	case PhasePulse:
		return "pulse"
	}
	return "unknown"
}

func (p Phase) glyph() string {
	switch p {
	case PhaseOpen:
		return ">"
	case PhaseClose:
		return "<"
	case PhasePulse:
		return "~"
	}
	return "."
}

// Attr is one key/value annotation.
type Attr struct {
	Key   string
	Value string
}

func Str(key, value string) Attr { return Attr{key, value} }
func Int(key string, v int) Attr { return Attr{key, strconv.Itoa(v)} }
func Bool(key string, v bool) Attr {
	return Attr{key, strconv.FormatBool(v)}
}

// Event is one record of the log.
type Event struct {
	Time    time.Time
	Seq     uint64
	Phase   Phase
	Scope   Scope
	Span    uint64 // 0 for marks
	Parent  uint64
	Slot    int // worker slot, -1 outside the trial pool
	Name    string
	Detail  string
	Elapsed time.Duration
	Attrs   []Attr
}

// Lookup returns the value of the first attribute named key.
func (e *Event) Lookup(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Format selects the encoding of written events.
type Format uint8

const (
	FormatAuto   Format = iota // by output file extension
	FormatText
	FormatNDJSON
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format %q (expected auto|text|ndjson)", s)
}

// Encode renders ev. Text timestamps are relative to start.
func Encode(ev *Event, format Format, start time.Time) []byte {
	if format == FormatNDJSON {
		return encodeJSON(ev)
	}
	return encodeText(ev, start)
}

type jsonEvent struct {
	Time      string            `json:"time"`
	Seq       uint64            `json:"seq"`
	Phase     string            `json:"phase"`
	Scope     string            `json:"scope"`
	Span      uint64            `json:"span,omitempty"`
	Parent    uint64            `json:"parent,omitempty"`
	Slot      *int              `json:"slot,omitempty"`
	Name      string            `json:"name"`
	Detail    string            `json:"detail,omitempty"`
	ElapsedMS float64           `json:"elapsed_ms,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

func encodeJSON(ev *Event) []byte {
	out := jsonEvent{
		Time:      ev.Time.Format(time.RFC3339Nano),
		Seq:       ev.Seq,
		Phase:     ev.Phase.String(),
		Scope:     ev.Scope.String(),
		Span:      ev.Span,
		Parent:    ev.Parent,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedMS: float64(ev.Elapsed.Microseconds()) / 1000,
	}
	if ev.Slot >= 0 {
		slot := ev.Slot
		out.Slot = &slot
	}
	if len(ev.Attrs) > 0 {
		out.Attrs = make(map[string]string, len(ev.Attrs))
		for _, a := range ev.Attrs {
			out.Attrs[a.Key] = a.Value
		}
	}
	data, _ := json.Marshal(out)
	return append(data, '\n')
}

// encodeText renders "[   12.345ms] trial   #1 . trial reproduces {node=7}".
func encodeText(ev *Event, start time.Time) []byte {
	var sb strings.Builder
	at := ev.Time.Sub(start)
	if start.IsZero() || at < 0 {
		at = 0
	}
	fmt.Fprintf(&sb, "[%10.3fms] %-7s ", float64(at.Microseconds())/1000, ev.Scope)
	if ev.Slot >= 0 {
		fmt.Fprintf(&sb, "#%d ", ev.Slot)
	}
	sb.WriteString(ev.Phase.glyph())
	sb.WriteByte(' ')
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		sb.WriteString(" ")
		sb.WriteString(ev.Detail)
	}
	if ev.Phase == PhaseClose {
		fmt.Fprintf(&sb, " in %s", ev.Elapsed.Round(time.Microsecond))
	}
	if len(ev.Attrs) > 0 {
		sb.WriteString(" {")
		for i, a := range ev.Attrs {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(a.Key)
			sb.WriteByte('=')
			sb.WriteString(a.Value)
		}
		sb.WriteByte('}')
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
