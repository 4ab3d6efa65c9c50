package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var spanIDs atomic.Uint64

type spanKey struct{}
type slotKey struct{}

// WithSlot marks ctx as running in worker slot n of the trial pool.
func WithSlot(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, slotKey{}, n)
}

func slotOf(ctx context.Context) int {
	if n, ok := ctx.Value(slotKey{}).(int); ok {
		return n
	}
	return -1
}

func parentOf(ctx context.Context) uint64 {
	id, _ := ctx.Value(spanKey{}).(uint64)
	return id
}

// Span is an operation with a duration.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	slot   int
	scope  Scope
	name   string
	begun  time.Time
	attrs  []Attr
}

// Start opens a span under the one carried by ctx and returns a context
// carrying the new span. When the tracer does not keep scope the span is
// inert but still measures time.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	sp := &Span{begun: time.Now()}
	if !t.Level().Keeps(scope) {
		return ctx, sp
	}
	sp.t, sp.id, sp.parent = t, spanIDs.Add(1), parentOf(ctx)
	sp.slot, sp.scope, sp.name = slotOf(ctx), scope, name
	t.Record(&Event{
		Time:   sp.begun,
		Phase:  PhaseOpen,
		Scope:  scope,
		Span:   sp.id,
		Parent: sp.parent,
		Slot:   sp.slot,
		Name:   name,
	})
	return context.WithValue(ctx, spanKey{}, sp.id), sp
}

// Set adds an attribute reported when the span ends.
func (s *Span) Set(attrs ...Attr) *Span {
	if s != nil && s.t != nil {
		s.attrs = append(s.attrs, attrs...)
	}
	return s
}

// ID is zero for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	elapsed := time.Since(s.begun)
	if s.t == nil {
		return elapsed
	}
	s.t.Record(&Event{
		Time:    time.Now(),
		Phase:   PhaseClose,
		Scope:   s.scope,
		Span:    s.id,
		Parent:  s.parent,
		Slot:    s.slot,
		Name:    s.name,
		Detail:  detail,
		Elapsed: elapsed,
		Attrs:   s.attrs,
	})
	return elapsed
}

// Point records an instant under the span carried by ctx.
func Point(ctx context.Context, scope Scope, name, detail string, attrs ...Attr) {
	t := FromContext(ctx)
	if !t.Level().Keeps(scope) {
		return
	}
	t.Record(&Event{
		Time:   time.Now(),
		Phase:  PhaseMark,
		Scope:  scope,
		Parent: parentOf(ctx),
		Slot:   slotOf(ctx),
		Name:   name,
		Detail: detail,
		Attrs:  attrs,
	})
}
