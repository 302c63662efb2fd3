// File: stream/event.go
//
// Author: rmstar
// License: Apache-2.0
//
// notifyEvent is the one-shot notification state machine behind
// NotifyOnRead and NotifyOnWrite. It is a small latch with states: idle,
// ready (readiness arrived with nobody waiting), armed (a callback waits
// for readiness), terminal (end of stream or a fault made readiness
// permanent), and shut down. Readiness and arming are commutative:
// whichever arrives second fires the callback.

package stream

import (
	"sync"

	"github.com/rmstar/grpc/api"
)

type notifyEvent struct {
	mu       sync.Mutex
	armed    api.Callback // non-nil while a registration waits
	ready    bool         // readiness latched with no registration present
	terminal bool         // readiness is permanent; survives being consumed
	shutdown error        // non-nil once shut down; sticky
}

// notifyOn registers cb. If readiness is already latched the callback is
// consumed immediately; if the event is shut down it fires with the
// shutdown error. Either way cb is scheduled on sched, never run inline.
// Arming twice is a contract violation and panics.
func (e *notifyEvent) notifyOn(cb api.Callback, sched api.Scheduler) {
	e.mu.Lock()
	if e.shutdown != nil {
		err := e.shutdown
		e.mu.Unlock()
		sched.Schedule(cb, err)
		return
	}
	if e.ready || e.terminal {
		e.ready = false
		e.mu.Unlock()
		sched.Schedule(cb, nil)
		return
	}
	if e.armed != nil {
		e.mu.Unlock()
		panic("stream: notification already armed in this direction")
	}
	e.armed = cb
	e.mu.Unlock()
}

// setReady latches readiness, firing the armed callback if one waits.
// Repeated readiness with no consumer collapses into one latch.
func (e *notifyEvent) setReady(sched api.Scheduler) {
	e.mu.Lock()
	if e.shutdown != nil {
		e.mu.Unlock()
		return
	}
	if cb := e.armed; cb != nil {
		e.armed = nil
		e.mu.Unlock()
		sched.Schedule(cb, nil)
		return
	}
	e.ready = true
	e.mu.Unlock()
}

// setTerminal latches readiness permanently. End of stream and faults are
// level conditions: the stream keeps reporting them however often it is
// read, so every later registration fires too.
func (e *notifyEvent) setTerminal(sched api.Scheduler) {
	e.mu.Lock()
	if e.shutdown != nil {
		e.mu.Unlock()
		return
	}
	e.terminal = true
	cb := e.armed
	e.armed = nil
	e.mu.Unlock()
	if cb != nil {
		sched.Schedule(cb, nil)
	}
}

// setShutdown moves the event to its final state. An armed callback fires
// with err; later registrations fire with it immediately. The first
// shutdown reason wins.
func (e *notifyEvent) setShutdown(err error, sched api.Scheduler) {
	e.mu.Lock()
	if e.shutdown != nil {
		e.mu.Unlock()
		return
	}
	e.shutdown = err
	cb := e.armed
	e.armed = nil
	e.mu.Unlock()
	if cb != nil {
		sched.Schedule(cb, err)
	}
}
