// Package harness runs a catalog of capability probes concurrently and
// reports on them.
//
// # Execution Model
//
// Each descriptor handed to Dispatch becomes one goroutine (a unit). Units
// run with no ordering guarantee between them, optionally bounded by
// WithMaxParallel. Every unit walks the same steps:
//
//  1. The active count is incremented at dispatch, before the unit starts.
//  2. No callback: the outcome is Skipped and pass/fail counters are untouched.
//  3. The probe name is resolved; if absent the outcome is Failed with
//     MISSING_CAPABILITY and the callback is never called.
//  4. The callback runs under fault isolation; a returned error or a panic
//     becomes Failed with CALLBACK_ERROR, a normal return is Passed.
//  5. For CALLBACK_ERROR only, declared dependencies are resolved and the
//     missing ones are reported.
//  6. Aliases are always resolved; a probe with at least one missing alias
//     adds exactly one to the undefined-alias-group count.
//  7. Counters are updated, the report lines are written, and the active
//     count is decremented last.
//
// A panic outside the callback (in a Resolver, say) fails the unit with
// INTERNAL. The alias check runs under its own guard, so it still happens
// after such a panic.
//
// AwaitCompletionAndReport suspends on the units' join (not a polling loop)
// until the active count reaches zero, then writes the summary footer.
//
// # Report Format
//
//	Capability check: demo-host
//	✅ - Pass, ⛔ - Fail, ⏺️ - No test, ⚠️ - Missing aliases
//
//	✅ cache.invalidate
//	⛔ debug.getinfo failed: not implemented
//	⚠️ debug.getinfo may have failed because of missing dependencies: debug.setinfo
//	⏺️ crypt.random
//
//	Summary for demo-host
//	✅ Tested with a 50% success rate (1 out of 2)
//	⛔ 1 test failed
//	⏺️ 1 probe without a test
//	⚠️ 0 probes missing aliases
//
// Lines belonging to one unit are written together; units interleave in
// completion order.
//
// # Limitations
//
// Callbacks take no context. A callback that never returns keeps the active
// count above zero; the caller bounds the run through the context passed to
// Run (or DispatchContext and AwaitCompletionAndReport), which then returns
// an *IncompleteError. This holds under WithMaxParallel too: waiting for a
// slot is abandoned when the context ends.
package harness
