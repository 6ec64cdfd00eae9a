package testutil

import (
	"sync"

	"github.com/roach88/capprobe/internal/registry"
)

// Gate holds callbacks until Release is called.
//
// Tests use it to keep units active and observe the harness mid-run:
//
//	g := testutil.NewGate()
//	h.Dispatch(registry.Descriptor{Name: "x", Callback: g.Callback(nil)})
//	g.WaitStarted(1)
//	// units are now parked inside their callbacks
//	g.Release()
//
// Thread-safety: all methods are safe for concurrent use.
type Gate struct {
	release chan struct{}
	once    sync.Once

	mu      sync.Mutex
	cond    *sync.Cond
	started int
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	g := &Gate{release: make(chan struct{})}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Callback returns a callback that blocks until Release and then returns
// err (nil for a pass).
func (g *Gate) Callback(err error) registry.Callback {
	return func() (string, error) {
		g.mu.Lock()
		g.started++
		g.cond.Broadcast()
		g.mu.Unlock()

		<-g.release
		return "", err
	}
}

// WaitStarted blocks until at least n callbacks are parked in the gate.
func (g *Gate) WaitStarted(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.started < n {
		g.cond.Wait()
	}
}

// Started returns the number of callbacks that have entered the gate.
func (g *Gate) Started() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// Release opens the gate. Safe to call more than once.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}
