package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/capprobe/internal/capability"
	"github.com/roach88/capprobe/internal/registry"
)

// DefaultEnvironmentName is used in the report header when no name is set.
const DefaultEnvironmentName = "unnamed environment"

// Harness dispatches probes and reports on them. One Harness serves exactly
// one run.
//
// Thread-safety model:
//   - Dispatch(), DispatchContext(): call from a single goroutine, in catalog order
//   - AwaitCompletionAndReport(): call once, after the last Dispatch
//   - State(): safe from any goroutine
type Harness struct {
	resolver    capability.Resolver
	logger      *slog.Logger
	report      *reporter
	environment string

	state RunState
	group errgroup.Group
	slots *semaphore.Weighted // nil when unbounded

	dispatched atomic.Int64
	headerOnce sync.Once
	reported   atomic.Bool

	mu       sync.Mutex
	outcomes []Outcome
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithOutput sets the report destination. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) {
		h.report = newReporter(w)
	}
}

// WithEnvironmentName sets the name shown in the report header and footer.
func WithEnvironmentName(name string) Option {
	return func(h *Harness) {
		if name != "" {
			h.environment = name
		}
	}
}

// WithMaxParallel bounds the number of units running at once.
// Zero or negative means unbounded. With a bound, dispatch waits for a free
// slot; WithMaxParallel(1) runs probes one at a time in catalog order.
func WithMaxParallel(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// New creates a Harness that resolves capabilities through r.
func New(r capability.Resolver, opts ...Option) *Harness {
	h := &Harness{
		resolver:    r,
		logger:      slog.Default(),
		report:      newReporter(os.Stdout),
		environment: DefaultEnvironmentName,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State returns the live run counters.
func (h *Harness) State() *RunState {
	return &h.state
}

// Dispatch launches d as an independent unit. The report header is written
// before the first unit is launched.
//
// Whatever d's callback does, the unit reaches a terminal outcome, updates
// the counters, and decrements the active count. Under WithMaxParallel,
// Dispatch waits for a free slot with no deadline; use DispatchContext to
// bound that wait.
func (h *Harness) Dispatch(d registry.Descriptor) {
	_ = h.DispatchContext(context.Background(), d)
}

// DispatchContext is Dispatch with a bounded wait for a parallelism slot.
// If ctx ends first, d is not dispatched and ctx's error is returned.
// Without WithMaxParallel it never fails.
func (h *Harness) DispatchContext(ctx context.Context, d registry.Descriptor) error {
	h.headerOnce.Do(h.writeHeader)

	if h.reported.Load() {
		h.logger.Warn("probe dispatched after the run was reported", "name", d.Name)
	}

	if h.slots != nil {
		if err := h.slots.Acquire(ctx, 1); err != nil {
			h.logger.Debug("probe not dispatched", "name", d.Name, "error", err)
			return err
		}
	}

	index := int(h.dispatched.Add(1)) - 1
	h.state.begin()
	h.logger.Debug("probe dispatched", "name", d.Name, "index", index)

	h.group.Go(func() error {
		if h.slots != nil {
			defer h.slots.Release(1)
		}
		h.execute(index, d)
		return nil
	})
	return nil
}

// AwaitCompletionAndReport waits until every dispatched unit has finished,
// then writes the summary footer and returns the Summary.
//
// If ctx ends first, it returns an *IncompleteError and writes no footer;
// the units keep running. A second call returns ErrAlreadyReported.
func (h *Harness) AwaitCompletionAndReport(ctx context.Context) (*Summary, error) {
	if !h.reported.CompareAndSwap(false, true) {
		return nil, ErrAlreadyReported
	}
	h.headerOnce.Do(h.writeHeader)

	done := make(chan struct{})
	go func() {
		_ = h.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, h.abandon(0, ctx.Err())
	}

	summary := h.summarize()
	h.report.write(footerLines(summary))

	h.logger.Info("run complete",
		"environment", summary.Environment,
		"passes", summary.Passes,
		"fails", summary.Fails,
		"skipped", summary.Skipped,
		"undefined_alias_groups", summary.UndefinedAliasGroups,
		"success_rate", summary.SuccessRate,
	)
	return summary, nil
}

// Run reports on catalog against r: header, one DispatchContext per
// descriptor in order, then AwaitCompletionAndReport.
//
// ctx bounds the whole run. If it ends while descriptors are still waiting
// for a parallelism slot, Run stops dispatching and returns an
// *IncompleteError counting both the active units and the descriptors
// never dispatched; no footer is written.
func Run(ctx context.Context, r capability.Resolver, catalog []registry.Descriptor, opts ...Option) (*Summary, error) {
	h := New(r, opts...)
	h.headerOnce.Do(h.writeHeader)
	for i, d := range catalog {
		if err := h.DispatchContext(ctx, d); err != nil {
			return nil, h.abandon(len(catalog)-i, err)
		}
	}
	return h.AwaitCompletionAndReport(ctx)
}

func (h *Harness) abandon(undispatched int, err error) *IncompleteError {
	active := h.state.Active()
	h.logger.Error("run abandoned before completion",
		"active", active,
		"undispatched", undispatched,
		"error", err,
	)
	return &IncompleteError{Active: active, Undispatched: undispatched, Err: err}
}

func (h *Harness) writeHeader() {
	h.report.write(headerLines(h.environment))
}

// execute is the body of one unit. The status and the alias check are
// guarded separately: a panic outside the callback turns the outcome into
// INTERNAL but the aliases are still checked, and completion always runs.
func (h *Harness) execute(index int, d registry.Descriptor) {
	out := Outcome{Index: index, Name: d.Name}
	defer func() { h.complete(out) }()

	guard(&out, func() { h.evaluate(d, &out) })
	guard(&out, func() { out.MissingAliases = missingAliases(h.resolver, d.Aliases) })
}

// guard runs step and records a panic escaping it as an INTERNAL failure.
func guard(out *Outcome, step func()) {
	defer func() {
		if r := recover(); r != nil {
			pe := &ProbeError{Code: ErrCodeInternal, Name: out.Name, Message: fmt.Sprintf("panic: %v", r)}
			out.Status = StatusFailed
			out.Code = pe.Code
			out.Message = pe.Message
			out.Err = pe
			out.Note = ""
			out.MissingDependencies = nil
		}
	}()
	step()
}

// evaluate sets the status of out without touching shared state.
func (h *Harness) evaluate(d registry.Descriptor, out *Outcome) {
	if !d.HasTest() {
		out.Status = StatusSkipped
		return
	}

	if _, ok := h.resolver.Resolve(d.Name); !ok {
		pe := newMissingCapabilityError(d.Name)
		out.Status = StatusFailed
		out.Code = pe.Code
		out.Message = pe.Message
		out.Err = pe
		return
	}

	note, err := invoke(d.Callback)
	if err != nil {
		pe := newCallbackError(d.Name, err)
		out.Status = StatusFailed
		out.Code = pe.Code
		out.Message = pe.Message
		out.Err = pe
		out.MissingDependencies = missingDependencies(h.resolver, d.Dependencies)
		return
	}

	out.Status = StatusPassed
	out.Note = note
}

// invoke calls cb, converting a panic into a *PanicError.
func invoke(cb registry.Callback) (note string, err error) {
	defer func() {
		if r := recover(); r != nil {
			note = ""
			err = &PanicError{Value: r}
		}
	}()
	return cb()
}

// complete publishes a finished outcome. The active count is decremented
// last so that the footer can never precede a unit's report lines.
func (h *Harness) complete(out Outcome) {
	defer h.state.end()

	lines := outcomeLines(out)

	h.state.record(out)

	h.mu.Lock()
	h.outcomes = append(h.outcomes, out)
	h.mu.Unlock()

	h.report.write(lines)
	h.logOutcome(out)
}

func (h *Harness) logOutcome(out Outcome) {
	h.logger.Debug("probe finished",
		"name", out.Name,
		"index", out.Index,
		"status", out.Status,
		"code", out.Code,
	)
	if len(out.MissingDependencies) > 0 {
		h.logger.Warn("probe failed with missing dependencies",
			"name", out.Name,
			"missing", out.MissingDependencies,
		)
	}
	if len(out.MissingAliases) > 0 {
		h.logger.Warn("probe has missing aliases",
			"name", out.Name,
			"missing", out.MissingAliases,
		)
	}
}

// summarize builds the Summary once every unit has finished.
func (h *Harness) summarize() *Summary {
	counts := h.state.Snapshot()

	h.mu.Lock()
	outcomes := make([]Outcome, len(h.outcomes))
	copy(outcomes, h.outcomes)
	h.mu.Unlock()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})

	return &Summary{
		Environment:          h.environment,
		Passes:               counts.Passes,
		Fails:                counts.Fails,
		Skipped:              counts.Skipped,
		UndefinedAliasGroups: counts.UndefinedAliasGroups,
		Executed:             counts.Passes + counts.Fails,
		SuccessRate:          SuccessRate(counts.Passes, counts.Fails),
		Outcomes:             outcomes,
	}
}
