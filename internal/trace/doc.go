// Package trace records what speclower is doing while it runs.
//
// Tracing helps answer "where did the time go" and "which call site broke the
// pass" without attaching a debugger.
//
// # Usage
//
//	speclower lower --trace=- --trace-level=detail kernels/*.scir
//
// # Tracers
//
//   - Nop: used when tracing is off
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events in memory; with --trace-level=error
//     it is the only sink and is dumped to stderr when the command fails
//   - MultiTracer: fans events out to several tracers
//
// # Levels and scopes
//
// LevelPhase shows ScopeDriver and ScopeUnit events, LevelDetail adds one span
// per accessor declaration (ScopePass), LevelDebug adds a point event for each
// rewritten call site (ScopeCallSite).
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.StartSpan(ctx, trace.ScopeUnit, "unit:"+name)
//	defer span.End("")
package trace
