package trace

import (
	"io"
	"sync"
	"time"
)

const defaultRingSize = 4096

// Ring keeps the most recent events.
type Ring struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	n     int
	start time.Time
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = defaultRingSize
	}
	return &Ring{buf: make([]Event, size), start: time.Now()}
}

func (r *Ring) push(ev Event) {
	r.mu.Lock()
	r.buf[r.next] = ev
	r.next = (r.next + 1) % len(r.buf)
	r.n = min(r.n+1, len(r.buf))
	r.mu.Unlock()
}

// Events returns the stored events, oldest first.
func (r *Ring) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, r.n)
	first := (r.next - r.n + len(r.buf)) % len(r.buf)
	for i := range r.n {
		out = append(out, r.buf[(first+i)%len(r.buf)])
	}
	return out
}

// Dump writes the stored events to w.
func (r *Ring) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Events() {
		if _, err := w.Write(Encode(&ev, format, r.start)); err != nil {
			return err
		}
	}
	return nil
}
