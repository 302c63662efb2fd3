// File: timers/timers.go
// Author: rmstar
// License: Apache-2.0

// Package timers runs deadline callbacks over an injectable clock. The real
// clock drives production; tests substitute a mock and advance it by hand,
// which makes watchdog behavior deterministic.
package timers

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rmstar/grpc/api"
)

// Queue binds a clock to the scheduler deadline callbacks run on.
type Queue struct {
	clk   clock.Clock
	sched api.Scheduler
}

// New creates a timer queue. A nil clk uses the wall clock.
func New(clk clock.Clock, sched api.Scheduler) *Queue {
	if clk == nil {
		clk = clock.New()
	}
	return &Queue{clk: clk, sched: sched}
}

const (
	timerPending int32 = iota
	timerFired
	timerCancelled
)

// Timer is one scheduled deadline. Exactly one of firing and cancellation
// wins; the loser is a no-op.
type Timer struct {
	state atomic.Int32
	inner *clock.Timer
}

// Schedule arranges for cb to run on the queue's scheduler, with a nil
// error, once d has elapsed. The callback of a timer cancelled in time is
// never run.
func (q *Queue) Schedule(d time.Duration, cb api.Callback) *Timer {
	t := &Timer{}
	t.inner = q.clk.AfterFunc(d, func() {
		if t.state.CompareAndSwap(timerPending, timerFired) {
			q.sched.Schedule(cb, nil)
		}
	})
	return t
}

// Cancel prevents the callback from running if the timer has not fired yet.
// It reports whether the firing was prevented; false means the callback ran
// or is already on its way to the scheduler.
func (t *Timer) Cancel() bool {
	if t.state.CompareAndSwap(timerPending, timerCancelled) {
		t.inner.Stop()
		return true
	}
	return false
}
