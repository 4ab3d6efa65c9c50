package vcache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"ddebug/internal/oracle"
)

// Stats counts cache traffic. Duplicates counts oracle invocations for a
// fingerprint that had already been invoked; it stays zero unless the cache
// is bypassed.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Invocations uint64
	Duplicates  uint64
}

// Cache maps fingerprints to verdicts for one session.
type Cache struct {
	mu      sync.RWMutex
	entries map[Fingerprint]oracle.Verdict
	invoked map[Fingerprint]struct{}
	group   singleflight.Group

	hits        atomic.Uint64
	misses      atomic.Uint64
	invocations atomic.Uint64
	duplicates  atomic.Uint64
}

func New() *Cache {
	return &Cache{
		entries: make(map[Fingerprint]oracle.Verdict),
		invoked: make(map[Fingerprint]struct{}),
	}
}

type flight struct {
	verdict oracle.Verdict
	err     error
}

// Do returns the stored verdict for fp, or runs fn to produce it. Concurrent
// calls for the same fingerprint share one fn invocation. Process failures
// and verdicts produced under a cancelled context are not stored.
func (c *Cache) Do(ctx context.Context, fp Fingerprint, fn func(context.Context) (oracle.Verdict, error)) (oracle.Verdict, bool, error) {
	if v, ok := c.Lookup(fp); ok {
		c.hits.Add(1)
		return v, true, nil
	}
	c.misses.Add(1)

	res, _, _ := c.group.Do(string(fp[:]), func() (any, error) {
		if v, ok := c.Lookup(fp); ok {
			return flight{verdict: v}, nil
		}
		c.markInvoked(fp)
		v, err := fn(ctx)
		if err == nil && v != oracle.ProcessFailure && ctx.Err() == nil {
			c.mu.Lock()
			c.entries[fp] = v
			c.mu.Unlock()
		}
		return flight{verdict: v, err: err}, nil
	})
	f := res.(flight)
	return f.verdict, false, f.err
}

// Lookup returns a stored verdict without invoking anything.
func (c *Cache) Lookup(fp Fingerprint) (oracle.Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[fp]
	return v, ok
}

func (c *Cache) markInvoked(fp Fingerprint) {
	c.invocations.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.invoked[fp]; seen {
		c.duplicates.Add(1)
		return
	}
	c.invoked[fp] = struct{}{}
}

// Len returns the number of stored verdicts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Invocations: c.invocations.Load(),
		Duplicates:  c.duplicates.Load(),
	}
}
