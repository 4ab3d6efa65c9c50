// Package trace records the structured event log of a reduction session.
//
// A Recorder streams events to a file or stderr, keeps the most recent ones
// in a ring for dumps after a failure, or both:
//
//	ddebug --trace=- --trace-level=detail src/main.rs
//	ddebug --trace=run.ndjson --trace-level=debug src/main.rs
//
// The level selects which scopes are recorded:
//
//   - LevelPhase: ScopeSession and ScopePass
//   - LevelDetail: adds ScopeTrial, one event per oracle run
//   - LevelDebug: adds ScopeNode, the per-node search decisions
//
// LevelError prints nothing while running but keeps trial events in the
// ring.
//
// The tracer travels in the context:
//
//	ctx = trace.WithTracer(ctx, rec)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "pass")
//	defer span.End("")
package trace
