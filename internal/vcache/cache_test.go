package vcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ddebug/internal/oracle"
	"ddebug/internal/syntax"
)

var seed = [32]byte{1, 2, 3}

func TestComputeIsOrderInsensitive(t *testing.T) {
	a := Compute(seed, []syntax.NodeID{5, 1, 9}, 3)
	b := Compute(seed, []syntax.NodeID{3, 9}, 1, 5, 5)
	if a != b {
		t.Fatalf("fingerprints differ: %s vs %s", a, b)
	}
	if a == Compute(seed, []syntax.NodeID{5, 1, 9}) {
		t.Fatal("different sets share a fingerprint")
	}
	if a == Compute([32]byte{9}, []syntax.NodeID{5, 1, 9}, 3) {
		t.Fatal("seed ignored")
	}
}

func TestDoCachesVerdicts(t *testing.T) {
	c := New()
	ctx := context.Background()
	fp := Compute(seed, nil, 1)
	calls := 0
	fn := func(context.Context) (oracle.Verdict, error) {
		calls++
		return oracle.Reproduces, nil
	}
	for i := range 3 {
		v, hit, err := c.Do(ctx, fp, fn)
		if err != nil || v != oracle.Reproduces {
			t.Fatalf("Do = %s, %v", v, err)
		}
		if hit != (i > 0) {
			t.Fatalf("call %d: hit = %v", i, hit)
		}
	}
	st := c.Stats()
	if calls != 1 || st.Hits != 2 || st.Misses != 1 || st.Invocations != 1 || st.Duplicates != 0 {
		t.Fatalf("calls=%d stats=%+v", calls, st)
	}
}

func TestDoCoalescesConcurrentCalls(t *testing.T) {
	c := New()
	fp := Compute(seed, []syntax.NodeID{2, 4})
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (oracle.Verdict, error) {
		calls.Add(1)
		<-release
		return oracle.OtherError, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, _, _ := c.Do(context.Background(), fp, fn); v != oracle.OtherError {
				t.Errorf("verdict = %s", v)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("oracle invoked %d times for one fingerprint", calls.Load())
	}
	if st := c.Stats(); st.Duplicates != 0 || st.Invocations != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDoDoesNotStoreFailures(t *testing.T) {
	c := New()
	fp := Compute(seed, nil, 7)
	boom := errors.New("boom")
	v, _, err := c.Do(context.Background(), fp, func(context.Context) (oracle.Verdict, error) {
		return oracle.ProcessFailure, boom
	})
	if v != oracle.ProcessFailure || !errors.Is(err, boom) {
		t.Fatalf("Do = %s, %v", v, err)
	}
	if _, ok := c.Lookup(fp); ok {
		t.Fatal("process failure was cached")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Do(ctx, fp, func(context.Context) (oracle.Verdict, error) { return oracle.Timeout, nil })
	if c.Len() != 0 {
		t.Fatal("verdict under cancelled context was cached")
	}
}
