package harness

import "sync/atomic"

// RunState holds the counters shared by every unit of a run.
//
// Thread-safety: every field is an atomic; units update it concurrently
// without a lock. Snapshot reads each counter atomically but not the set
// as a whole.
type RunState struct {
	passes               atomic.Int64
	fails                atomic.Int64
	skipped              atomic.Int64
	undefinedAliasGroups atomic.Int64
	active               atomic.Int64
}

// Counts is a point-in-time copy of a RunState.
type Counts struct {
	Passes               int
	Fails                int
	Skipped              int
	UndefinedAliasGroups int
	Active               int
}

// begin marks one unit as dispatched.
func (s *RunState) begin() {
	s.active.Add(1)
}

// end marks one unit as finished. It must be the last thing a unit does.
func (s *RunState) end() {
	if s.active.Add(-1) < 0 {
		panic("harness: active count went negative")
	}
}

// record applies an outcome to the pass/fail/skip and alias counters.
func (s *RunState) record(o Outcome) {
	switch o.Status {
	case StatusPassed:
		s.passes.Add(1)
	case StatusFailed:
		s.fails.Add(1)
	case StatusSkipped:
		s.skipped.Add(1)
	}
	if len(o.MissingAliases) > 0 {
		s.undefinedAliasGroups.Add(1)
	}
}

// Active returns the number of dispatched units that have not finished.
func (s *RunState) Active() int {
	return int(s.active.Load())
}

// Snapshot returns the current counter values.
func (s *RunState) Snapshot() Counts {
	return Counts{
		Passes:               int(s.passes.Load()),
		Fails:                int(s.fails.Load()),
		Skipped:              int(s.skipped.Load()),
		UndefinedAliasGroups: int(s.undefinedAliasGroups.Load()),
		Active:               int(s.active.Load()),
	}
}
