package capability

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Resolver looks up a dotted capability path.
//
// Implementations must be safe for concurrent use and must fail closed:
// any missing or non-container intermediate segment yields (nil, false).
type Resolver interface {
	Resolve(path string) (any, bool)
}

// Func is an invocable capability. A non-empty string return is a
// diagnostic note; a non-nil error is a failure.
type Func func() (string, error)

// AsFunc reports whether v is invocable and adapts it to a Func.
// Accepted shapes: Func, func() (string, error), func() error, func().
func AsFunc(v any) (Func, bool) {
	switch fn := v.(type) {
	case Func:
		return fn, fn != nil
	case func() (string, error):
		return Func(fn), fn != nil
	case func() error:
		if fn == nil {
			return nil, false
		}
		return func() (string, error) { return "", fn() }, true
	case func():
		if fn == nil {
			return nil, false
		}
		return func() (string, error) { fn(); return "", nil }, true
	default:
		return nil, false
	}
}

// Namespace is a nested, mutable capability tree.
//
// Containers are map[string]any values. Storing a map[string]any with Set
// therefore creates a container, not an opaque leaf.
//
// Thread-safety: all methods are safe for concurrent use. Resolve takes a
// read lock only.
type Namespace struct {
	mu   sync.RWMutex
	root map[string]any
}

// New creates an empty namespace.
func New() *Namespace {
	return &Namespace{root: make(map[string]any)}
}

// Set stores v at path, creating intermediate containers as needed.
// Returns an error if the path is malformed or an intermediate segment
// already holds a non-container value.
func (n *Namespace) Set(path string, v any) error {
	segs, ok := splitPath(path)
	if !ok {
		return fmt.Errorf("invalid capability path %q", path)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.root
	for i, seg := range segs[:len(segs)-1] {
		next, exists := cur[seg]
		if !exists {
			m := make(map[string]any)
			cur[seg] = m
			cur = m
			continue
		}
		m, isContainer := next.(map[string]any)
		if !isContainer {
			return fmt.Errorf("set %q: %q is not a container", path, strings.Join(segs[:i+1], "."))
		}
		cur = m
	}
	cur[segs[len(segs)-1]] = v
	return nil
}

// Delete removes the value at path. Missing paths are ignored.
func (n *Namespace) Delete(path string) {
	segs, ok := splitPath(path)
	if !ok {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.root
	for _, seg := range segs[:len(segs)-1] {
		m, isContainer := cur[seg].(map[string]any)
		if !isContainer {
			return
		}
		cur = m
	}
	delete(cur, segs[len(segs)-1])
}

// Resolve implements Resolver.
//
// Resolving a container path returns the container itself, so "cache" is
// present whenever any "cache.*" capability is.
func (n *Namespace) Resolve(path string) (any, bool) {
	segs, ok := splitPath(path)
	if !ok {
		return nil, false
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	var cur any = n.root
	for _, seg := range segs {
		m, isContainer := cur.(map[string]any)
		if !isContainer {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ErrNotInvocable is returned by Invoke when the path resolves to a value
// that is not a function.
var ErrNotInvocable = errors.New("capability is not invocable")

// ErrNotFound is returned by Invoke when the path does not resolve.
var ErrNotFound = errors.New("capability not found")

// Invoke resolves path against r and calls it.
func Invoke(r Resolver, path string) (string, error) {
	v, ok := r.Resolve(path)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	fn, ok := AsFunc(v)
	if !ok {
		return "", fmt.Errorf("%s: %w (got %T)", path, ErrNotInvocable, v)
	}
	return fn()
}

// splitPath splits a dotted path into NFC-normalized segments.
// Empty paths and empty segments ("a..b", ".a", "a.") are rejected.
func splitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		if seg == "" {
			return nil, false
		}
		segs[i] = norm.NFC.String(seg)
	}
	return segs, true
}
