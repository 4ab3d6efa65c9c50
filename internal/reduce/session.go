package reduce

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ddebug/internal/diag"
	"ddebug/internal/observ"
	"ddebug/internal/oracle"
	"ddebug/internal/source"
	"ddebug/internal/syntax"
	"ddebug/internal/trace"
	"ddebug/internal/vcache"
	"ddebug/internal/workspace"
)

// DefaultGrace is how long in-flight trials may finish after a stop request.
const DefaultGrace = 5 * time.Second

// Options configures a Session.
type Options struct {
	Tree       *syntax.Tree
	Signature  diag.Signature
	Oracle     oracle.Oracle
	Workspaces *workspace.Manager

	Concurrency int               // parallel trials; 1 when <= 0
	MaxPasses   int               // 0 means until fixed point
	SizeMetric  syntax.SizeMetric // candidate ordering metric
	Grace       time.Duration     // in-flight allowance after a stop; DefaultGrace when 0, none when < 0
	TimeBudget  time.Duration     // soft deadline for the whole session; 0 = none

	Sink      ProgressSink
	Timer     *observ.Timer
	SessionID string
}

// Session runs one reduction.
type Session struct {
	opts  Options
	tree  *syntax.Tree
	state *State
	cache *vcache.Cache
	sink  ProgressSink
	seed  [32]byte

	trials   int
	verdicts map[oracle.Verdict]int
	original int
	started  time.Time

	removable int
	bytes     int
}

// NewSession validates opts.
func NewSession(opts Options) (*Session, error) {
	if opts.Tree == nil {
		return nil, errors.New("reduce: nil tree")
	}
	if opts.Oracle == nil {
		return nil, errors.New("reduce: nil oracle")
	}
	if opts.Workspaces == nil {
		return nil, errors.New("reduce: nil workspace manager")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Grace == 0 {
		opts.Grace = DefaultGrace
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	return &Session{
		opts:      opts,
		tree:      opts.Tree,
		state:     NewState(opts.Tree),
		cache:     vcache.New(),
		sink:      sink,
		seed:      opts.Tree.File().Hash,
		verdicts:  make(map[oracle.Verdict]int),
		original:  len(opts.Tree.File().Content),
		bytes:     len(opts.Tree.File().Content),
		removable: len(opts.Tree.Removable()),
	}, nil
}

// State exposes the reduction state; it must not be mutated while Run is
// in progress.
func (s *Session) State() *State { return s.state }

// Run reduces the program. On success the error is nil and the result is
// complete. ErrNoReproduction is returned without a result. On cancellation
// or an exhausted time budget the result is partial and the error wraps
// ErrAborted; on a process failure or workspace error the result is partial
// and the error wraps the cause.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	s.started = time.Now()
	ctx, span := trace.Start(ctx, trace.ScopeSession, "reduce")
	span.Set(trace.Str("session", s.opts.SessionID))
	defer func() { span.End("") }()

	soft := ctx
	if s.opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		soft, cancel = context.WithTimeoutCause(ctx, s.opts.TimeBudget, errTimeBudget)
		defer cancel()
	}
	hard, hardCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer hardCancel()
	stopWatch := context.AfterFunc(soft, func() {
		if s.opts.Grace < 0 {
			hardCancel()
			return
		}
		time.AfterFunc(s.opts.Grace, hardCancel)
	})
	defer stopWatch()

	s.emit(Event{Kind: EventStart})

	v, err := s.evaluate(hard, 0, nil)
	if err != nil {
		return nil, err
	}
	if v != oracle.Reproduces {
		if soft.Err() != nil {
			return nil, fmt.Errorf("%w: stopped before the original program was classified", ErrAborted)
		}
		return nil, fmt.Errorf("%w (original program classified as %s)", ErrNoReproduction, v)
	}

	if s.removable == 0 {
		return s.finish(StopNothingRemovable, nil), nil
	}

	for {
		if s.opts.MaxPasses > 0 && s.state.Pass() >= s.opts.MaxPasses {
			return s.finish(StopMaxPasses, nil), nil
		}
		accepted, stopped, err := s.runPass(soft, hard)
		if err != nil {
			return s.finish(StopFatal, err), err
		}
		if stopped {
			reason := StopCancelled
			if errors.Is(context.Cause(soft), errTimeBudget) {
				reason = StopTimeBudget
			}
			err := fmt.Errorf("%w: %s", ErrAborted, reason)
			return s.finish(reason, err), err
		}
		if accepted == 0 {
			return s.finish(StopFixedPoint, nil), nil
		}
	}
}

// runPass performs one level-by-level traversal and returns the number of
// acceptances. Once soft is done it stops dispatching and reports stopped.
func (s *Session) runPass(soft, hard context.Context) (accepted int, stopped bool, err error) {
	s.state.BeginPass()
	pass := s.state.Pass()
	ctx, span := trace.Start(hard, trace.ScopePass, "pass")
	span.Set(trace.Int("pass", pass))
	s.emit(Event{Kind: EventPassStart, Pass: pass})

	defer func() {
		span.Set(trace.Int("accepted", accepted)).End("")
		s.emit(Event{Kind: EventPassEnd, Pass: pass})
	}()

	level := append([]syntax.NodeID(nil), s.tree.ChildrenOf(s.tree.Root())...)
	for depth := 1; len(level) > 0; depth++ {
		orderLevel(s.tree, level, s.opts.SizeMetric)
		var next, pending []syntax.NodeID
		for _, id := range level {
			switch {
			case s.state.Removed(id):
				trace.Point(ctx, trace.ScopeNode, "skip", s.tree.Label(id), trace.Str("node", nodeStr(id)))
			case !syntax.IsRemovable(s.tree.Node(id).Kind):
				next = append(next, s.tree.ChildrenOf(id)...)
			default:
				pending = append(pending, id)
			}
		}

		for len(pending) > 0 {
			if soft.Err() != nil {
				return accepted, true, nil
			}
			window := pending[:min(len(pending), s.opts.Concurrency)]
			base := s.state.Accepted()
			verdicts, cached, err := s.dispatch(ctx, base, window)
			if err != nil {
				return accepted, false, err
			}

			consumed := len(window)
			for i, id := range window {
				s.trials++
				s.verdicts[verdicts[i]]++
				if verdicts[i] == oracle.Reproduces {
					s.state.Accept(id)
					accepted++
					consumed = i + 1
					s.emitTrial(pass, id, verdicts[i], cached[i], true)
					break
				}
				s.state.Reject(id)
				next = append(next, s.tree.ChildrenOf(id)...)
				s.emitTrial(pass, id, verdicts[i], cached[i], false)
			}
			pending = pending[consumed:]
			pending = dropRemoved(s.state, pending)
		}
		trace.Point(ctx, trace.ScopeNode, "level", "", trace.Int("depth", depth), trace.Int("next", len(next)))
		level = next
	}
	return accepted, soft.Err() != nil, nil
}

// dispatch runs one window of trials against base and hard-joins them.
func (s *Session) dispatch(ctx context.Context, base, window []syntax.NodeID) ([]oracle.Verdict, []bool, error) {
	verdicts := make([]oracle.Verdict, len(window))
	cached := make([]bool, len(window))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, id := range window {
		g.Go(func() error {
			removed := withRemoval(s.tree, base, id)
			fp := vcache.Compute(s.seed, removed)
			tctx := trace.WithSlot(gctx, i)
			v, hit, err := s.cache.Do(tctx, fp, func(c context.Context) (oracle.Verdict, error) {
				return s.evaluate(c, i, removed)
			})
			verdicts[i], cached[i] = v, hit
			trace.Point(tctx, trace.ScopeTrial, "trial", v.String(),
				trace.Str("node", nodeStr(id)), trace.Bool("cached", hit), trace.Str("fp", fp.String()))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return verdicts, cached, nil
}

// evaluate materializes the program with removed elided and classifies it.
// Cancellation yields Timeout; process failures and workspace errors are
// returned as errors.
func (s *Session) evaluate(ctx context.Context, slot int, removed []syntax.NodeID) (oracle.Verdict, error) {
	text := syntax.Reconstruct(s.tree, removed)
	content := s.tree.File().Restore([]byte(text))

	ws, err := s.opts.Workspaces.Prepare(ctx, slot, content)
	if err != nil {
		if ctx.Err() != nil {
			return oracle.Timeout, nil
		}
		return oracle.OtherError, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			trace.Point(ctx, trace.ScopeTrial, "workspace-remove", err.Error())
		}
	}()

	cacheDir, err := s.opts.Workspaces.CacheDir(slot)
	if err != nil {
		return oracle.OtherError, err
	}

	start := time.Now()
	v, err := s.opts.Oracle.Classify(oracle.WithCacheDir(ctx, cacheDir), ws.Dir, s.opts.Signature)
	s.opts.Timer.Trial(time.Since(start))
	if v == oracle.ProcessFailure && err == nil {
		err = oracle.ErrProcessFailure
	}
	if err != nil && ctx.Err() != nil {
		return oracle.Timeout, nil
	}
	return v, err
}

func (s *Session) finish(reason StopReason, cause error) *Result {
	text := s.state.Text()
	res := &Result{
		SessionID:     s.opts.SessionID,
		Text:          text,
		Removed:       s.state.Accepted(),
		Passes:        s.state.Pass(),
		Trials:        s.trials,
		Verdicts:      s.verdicts,
		Cache:         s.cache.Stats(),
		StopReason:    reason,
		Partial:       cause != nil,
		Minimal:       reason == StopFixedPoint || reason == StopNothingRemovable,
		Retained:      s.retained(),
		Removable:     s.removable,
		OriginalBytes: s.original,
		FinalBytes:    len(text),
		OriginalLines: s.tree.File().LineCount(),
		FinalLines:    source.CountLines([]byte(text)),
		Elapsed:       time.Since(s.started),
	}
	s.emit(Event{Kind: EventDone, Pass: res.Passes, Result: res})
	return res
}

// retained lists surviving declarations that surviving code refers to.
func (s *Session) retained() []Retained {
	refs := s.tree.References()
	live := func(id syntax.NodeID) bool { return !s.state.Removed(id) }
	var out []Retained
	for _, id := range s.tree.Removable() {
		n := s.tree.Node(id)
		if n.Name == "" || s.state.Removed(id) {
			continue
		}
		users := refs.UsersOf(s.tree, id, live)
		if len(users) == 0 {
			continue
		}
		r := Retained{Node: id, Label: s.tree.Label(id)}
		for _, u := range users {
			r.Users = append(r.Users, s.tree.Label(s.enclosingRemovable(u)))
		}
		out = append(out, r)
	}
	return out
}

func (s *Session) enclosingRemovable(id syntax.NodeID) syntax.NodeID {
	for cur := id; cur != syntax.NoNode; cur = s.tree.Node(cur).Parent {
		if syntax.IsRemovable(s.tree.Node(cur).Kind) {
			return cur
		}
	}
	return id
}

func (s *Session) emitTrial(pass int, id syntax.NodeID, v oracle.Verdict, cached, accepted bool) {
	ev := Event{
		Kind:    EventTrial,
		Pass:    pass,
		Node:    id,
		Label:   s.tree.Label(id),
		Verdict: v,
		Cached:  cached,
	}
	if accepted {
		s.bytes = len(s.state.Text())
	}
	s.emit(ev)
}

func (s *Session) emit(ev Event) {
	ev.Accepted = s.state.AcceptedCount()
	ev.Trials = s.trials
	ev.Removable = s.removable
	ev.Original = s.original
	ev.Bytes = s.bytes
	ev.Elapsed = time.Since(s.started)
	s.sink.OnEvent(ev)
}

func dropRemoved(st *State, ids []syntax.NodeID) []syntax.NodeID {
	out := ids[:0]
	for _, id := range ids {
		if !st.Removed(id) {
			out = append(out, id)
		}
	}
	return out
}

func nodeStr(id syntax.NodeID) string {
	return strconv.FormatUint(uint64(id), 10)
}
