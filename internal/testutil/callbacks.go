// Package testutil provides probe fixtures shared by package tests.
package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/capprobe/internal/registry"
)

// Pass returns a callback that succeeds with note.
func Pass(note string) registry.Callback {
	return func() (string, error) { return note, nil }
}

// Fail returns a callback that fails with msg.
func Fail(msg string) registry.Callback {
	return func() (string, error) { return "", errors.New(msg) }
}

// Panic returns a callback that panics with v.
func Panic(v any) registry.Callback {
	return func() (string, error) { panic(v) }
}

// Counter returns a callback that succeeds and counts its calls, plus a
// func that reads the count.
func Counter() (registry.Callback, func() int) {
	c := &callCounter{}
	return func() (string, error) {
		c.inc()
		return "", nil
	}, c.get
}

type callCounter struct {
	mu sync.Mutex
	n  int
}

func (c *callCounter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *callCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
