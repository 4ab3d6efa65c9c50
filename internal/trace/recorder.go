package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Tracer receives events. Record must be safe for concurrent use.
type Tracer interface {
	Level() Level
	Record(ev *Event)
}

type nop struct{}

func (nop) Level() Level  { return LevelOff }
func (nop) Record(*Event) {}

// Nop discards everything.
var Nop Tracer = nop{}

type tracerKey struct{}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// Mode selects where a Recorder keeps events.
type Mode uint8

const (
	ModeStream Mode = iota + 1
	ModeRing
	ModeBoth
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	}
	return "unknown"
}

// ParseMode converts a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	}
	return ModeRing, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

// Options configure Open.
type Options struct {
	Level    Level
	Mode     Mode
	Format   Format
	Path     string    // "-" or empty writes to stderr
	Writer   io.Writer // overrides Path
	RingSize int
	Pulse    time.Duration // interval of liveness events; 0 disables
}

// Recorder is the Tracer installed by the CLI.
type Recorder struct {
	level  Level
	format Format
	start  time.Time

	mu     sync.Mutex
	seq    uint64
	w      io.Writer
	closer io.Closer
	ring   *Ring

	stop chan struct{}
	done chan struct{}
}

// Open builds a Recorder from opts.
func Open(opts Options) (*Recorder, error) {
	r := &Recorder{level: opts.Level, format: opts.Format, start: time.Now()}
	if opts.Level == LevelOff {
		return r, nil
	}
	if r.format == FormatAuto {
		r.format = FormatText
		if strings.HasSuffix(opts.Path, ".ndjson") || strings.HasSuffix(opts.Path, ".jsonl") {
			r.format = FormatNDJSON
		}
	}
	switch opts.Mode {
	case ModeStream, ModeBoth, ModeRing:
	default:
		return nil, fmt.Errorf("unknown trace mode %v", opts.Mode)
	}
	if opts.Mode != ModeStream {
		r.ring = NewRing(opts.RingSize)
	}
	if opts.Mode != ModeRing {
		switch {
		case opts.Writer != nil:
			r.w = opts.Writer
		case opts.Path == "" || opts.Path == "-":
			r.w = os.Stderr
		default:
			f, err := os.Create(opts.Path)
			if err != nil {
				return nil, fmt.Errorf("open trace output: %w", err)
			}
			r.w, r.closer = f, f
		}
	}
	if opts.Pulse > 0 {
		r.stop, r.done = make(chan struct{}), make(chan struct{})
		go r.pulse(opts.Pulse)
	}
	return r, nil
}

func (r *Recorder) Level() Level { return r.level }

// Ring returns the in-memory buffer, or nil in stream mode.
func (r *Recorder) Ring() *Ring { return r.ring }

// Record stamps ev with a sequence number and stores it. Write errors are
// dropped.
func (r *Recorder) Record(ev *Event) {
	pulse := ev.Phase == PhasePulse
	if !pulse && !r.level.Keeps(ev.Scope) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ev.Seq = r.seq
	if r.ring != nil {
		r.ring.push(*ev)
	}
	if r.w != nil && (pulse || r.level.prints(ev.Scope)) {
		_, _ = r.w.Write(Encode(ev, r.format, r.start))
	}
}

// pulse emits liveness events. Pulses with no trial events in between point
// at a build that hangs.
func (r *Recorder) pulse(every time.Duration) {
	defer close(r.done)
	tick := time.NewTicker(every)
	defer tick.Stop()
	for n := 1; ; n++ {
		select {
		case <-r.stop:
			return
		case <-tick.C:
			r.Record(&Event{
				Time:   time.Now(),
				Phase:  PhasePulse,
				Scope:  ScopeSession,
				Slot:   -1,
				Name:   "pulse",
				Detail: fmt.Sprintf("#%d", n),
			})
		}
	}
}

// Close stops the pulse and closes the output file. It is safe to call more
// than once.
func (r *Recorder) Close() error {
	if r.stop != nil {
		select {
		case <-r.stop:
		default:
			close(r.stop)
		}
		<-r.done
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if s, ok := r.w.(interface{ Sync() error }); ok && r.closer != nil {
		errs = append(errs, s.Sync())
	}
	if r.closer != nil {
		errs = append(errs, r.closer.Close())
		r.closer, r.w = nil, nil
	}
	return errors.Join(errs...)
}
