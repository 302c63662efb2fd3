// File: internal/refcount/refcount.go
// Package refcount implements a reason-tagged reference counter for objects
// whose lifetime is governed by in-flight asynchronous operations.
// Author: rmstar
// License: Apache-2.0

package refcount

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Counter counts outstanding references and invokes a release function when
// the count reaches zero. Each Ref and Unref carries a reason string so the
// debug log reconstructs which operation held the object alive.
type Counter struct {
	n       atomic.Int64
	name    string
	release func()
	log     *zap.Logger
}

// New returns a Counter starting at initial references. release runs exactly
// once, on the goroutine that drops the count to zero. A nil log disables
// tracing.
func New(name string, initial int64, release func(), log *zap.Logger) *Counter {
	if initial <= 0 {
		panic(fmt.Sprintf("refcount: initial count %d for %s", initial, name))
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Counter{name: name, release: release, log: log}
	c.n.Store(initial)
	return c
}

// Ref takes a reference. Taking a reference on an already released counter
// is a lifetime bug and panics.
func (c *Counter) Ref(reason string) {
	to := c.n.Add(1)
	if to <= 1 {
		panic(fmt.Sprintf("refcount: %s ref %q after release", c.name, reason))
	}
	c.log.Debug("ref",
		zap.String("object", c.name),
		zap.String("reason", reason),
		zap.Int64("count", to))
}

// TryRef takes a reference unless the object has already been released,
// and reports whether it was taken. Delivery paths that can outlive the
// object use it in place of Ref.
func (c *Counter) TryRef(reason string) bool {
	for {
		n := c.n.Load()
		if n <= 0 {
			return false
		}
		if c.n.CompareAndSwap(n, n+1) {
			c.log.Debug("ref",
				zap.String("object", c.name),
				zap.String("reason", reason),
				zap.Int64("count", n+1))
			return true
		}
	}
}

// Unref drops a reference and reports whether this call released the object.
func (c *Counter) Unref(reason string) bool {
	to := c.n.Add(-1)
	if to < 0 {
		panic(fmt.Sprintf("refcount: %s unref %q below zero", c.name, reason))
	}
	c.log.Debug("unref",
		zap.String("object", c.name),
		zap.String("reason", reason),
		zap.Int64("count", to))
	if to == 0 {
		if c.release != nil {
			c.release()
		}
		return true
	}
	return false
}

// Count returns the current reference count. Diagnostic use only; the value
// may be stale by the time the caller observes it.
func (c *Counter) Count() int64 { return c.n.Load() }
