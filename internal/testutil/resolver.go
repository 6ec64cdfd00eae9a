package testutil

import (
	"sync"

	"github.com/roach88/capprobe/internal/capability"
)

// CountingResolver wraps a Resolver and records every lookup.
//
// Thread-safety: safe for concurrent use via internal mutex.
type CountingResolver struct {
	inner capability.Resolver

	mu    sync.Mutex
	calls map[string]int
}

// NewCountingResolver wraps r.
func NewCountingResolver(r capability.Resolver) *CountingResolver {
	return &CountingResolver{inner: r, calls: make(map[string]int)}
}

// Resolve implements capability.Resolver.
func (c *CountingResolver) Resolve(path string) (any, bool) {
	c.mu.Lock()
	c.calls[path]++
	c.mu.Unlock()
	return c.inner.Resolve(path)
}

// Calls returns how many times path was resolved.
func (c *CountingResolver) Calls(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

// PanickingResolver panics on every lookup of Path and delegates the rest.
type PanickingResolver struct {
	capability.Resolver
	Path string
}

// Resolve implements capability.Resolver.
func (p PanickingResolver) Resolve(path string) (any, bool) {
	if path == p.Path {
		panic("resolver exploded on " + path)
	}
	return p.Resolver.Resolve(path)
}

// Host builds a namespace in which every given path is present.
// Paths are stored as plain values.
func Host(paths ...string) *capability.Namespace {
	ns := capability.New()
	for _, p := range paths {
		if err := ns.Set(p, true); err != nil {
			panic(err)
		}
	}
	return ns
}
