// Package registry holds the ordered catalog of probe descriptors for a run.
//
// A Descriptor names one capability probe: the capability path under test,
// alternate names it may also be exposed under (aliases), an optional
// callback, and the capabilities that callback presumes present
// (dependencies). A nil callback is the legal "no test" state.
//
// Duplicate names are accepted. Every Register call yields its own entry in
// the catalog and therefore its own unit of work in the harness; nothing is
// deduplicated.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// Callback is a probe body. A normal return passes, optionally with a
// diagnostic note; a non-nil error (or a panic) fails the probe.
type Callback func() (string, error)

// Descriptor is one registered probe. It is copied on registration and
// treated as immutable afterwards.
type Descriptor struct {
	// Name is the dotted capability path the probe exercises.
	Name string

	// Aliases are alternate names for the same capability, in declaration order.
	Aliases []string

	// Callback is the probe body. Nil means there is no test for Name.
	Callback Callback

	// Dependencies are capabilities the callback presumes present.
	// Consulted only to explain a callback failure.
	Dependencies []string
}

// HasTest reports whether the descriptor carries a callback.
func (d Descriptor) HasTest() bool {
	return d.Callback != nil
}

// ErrEmptyName is returned when registering a descriptor without a name.
var ErrEmptyName = errors.New("descriptor name is required")

// Registry is an append-only, ordered list of descriptors.
//
// Thread-safety: Register and Catalog may be called from any goroutine.
type Registry struct {
	mu          sync.Mutex
	descriptors []Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register appends d to the catalog. The alias and dependency slices are
// copied so later mutation by the caller cannot change a registered probe.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return ErrEmptyName
	}

	d.Aliases = cloneStrings(d.Aliases)
	d.Dependencies = cloneStrings(d.Dependencies)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = append(r.descriptors, d)
	return nil
}

// RegisterAll registers each descriptor in order, stopping at the first error.
func (r *Registry) RegisterAll(ds ...Descriptor) error {
	for i, d := range ds {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("descriptor %d: %w", i, err)
		}
	}
	return nil
}

// Catalog returns the descriptors in registration order.
// The returned slice is a copy.
func (r *Registry) Catalog() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.descriptors)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
