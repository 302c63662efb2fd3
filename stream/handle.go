// File: stream/handle.go
//
// Author: rmstar
// License: Apache-2.0
//
// Handle is the notification bridge between an event-driven stream pair and
// the endpoint built on it. Stream events arrive on the handle's serial
// queue, so per-direction state transitions never race; completion
// callbacks leave through the injected scheduler.

package stream

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rmstar/grpc/api"
	"github.com/rmstar/grpc/internal/dispatch"
	"github.com/rmstar/grpc/internal/refcount"
)

// Handle couples an api.EventPair with one serial dispatch queue and the
// two per-direction notification events. It is reference counted: the
// owning endpoint holds one reference, and each event in flight on the
// queue holds one while queued.
type Handle struct {
	pair    api.EventPair
	queue   *dispatch.SerialQueue
	sched   api.Scheduler
	readEv  notifyEvent
	writeEv notifyEvent
	refs    *refcount.Counter
	log     *zap.Logger
}

// NewHandle wires a handle to pair and registers its event sink. The caller
// owns the initial reference; Unref releases it.
func NewHandle(pair api.EventPair, sched api.Scheduler, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handle{
		pair:  pair,
		queue: dispatch.NewSerialQueue(),
		sched: sched,
		log:   log,
	}
	h.refs = refcount.New("stream-handle", 1, h.free, log)
	pair.SetEventSink(h.sink)
	return h
}

// sink receives events on the backend's delivery goroutine and defers them
// to the serial queue. The queued closure holds a reference so the handle
// survives until the event is processed. A backend can invoke a sink it
// captured before free detached it; events arriving after release are
// dropped.
func (h *Handle) sink(ev api.StreamEvent) {
	if !h.refs.TryRef("event") {
		return
	}
	h.queue.Enqueue(func() {
		h.processEvent(ev)
		h.refs.Unref("event")
	})
}

func (h *Handle) processEvent(ev api.StreamEvent) {
	h.log.Debug("stream event", zap.Stringer("event", ev))
	if ev.Has(api.EventError) {
		// A fault is permanent and wakes both directions; the streams
		// report the cause.
		h.readEv.setTerminal(h.sched)
		h.writeEv.setTerminal(h.sched)
		return
	}
	if ev.Has(api.EventEnd) {
		// End of stream holds for every read from here on, not just the
		// one that drains the last bytes.
		h.readEv.setTerminal(h.sched)
	} else if ev.Has(api.EventHasBytes) {
		h.readEv.setReady(h.sched)
	}
	if ev.Has(api.EventCanWrite) || ev.Has(api.EventOpenCompleted) {
		h.writeEv.setReady(h.sched)
	}
}

// NotifyOnRead registers a one-shot callback fired when the read half is
// ready: bytes available, end of stream, or a fault. At most one read
// registration may be outstanding; a second panics.
func (h *Handle) NotifyOnRead(cb api.Callback) {
	h.readEv.notifyOn(cb, h.sched)
}

// NotifyOnWrite registers the write-direction counterpart of NotifyOnRead.
func (h *Handle) NotifyOnWrite(cb api.Callback) {
	h.writeEv.notifyOn(cb, h.sched)
}

// Shutdown stops notification delivery. Armed and future registrations
// complete with ErrHandleShutdown, wrapping reason when one is given.
// Events still arriving from the backend are ignored. Idempotent; the
// first reason wins.
func (h *Handle) Shutdown(reason error) {
	err := error(ErrHandleShutdown)
	if reason != nil {
		err = fmt.Errorf("%w: %w", ErrHandleShutdown, reason)
	}
	h.readEv.setShutdown(err, h.sched)
	h.writeEv.setShutdown(err, h.sched)
}

// RunQueuedWork drains the serial queue on the caller's goroutine.
// Diagnostic paths call it when the drainer may be starved and queued
// events need to be forced through.
func (h *Handle) RunQueuedWork() {
	h.queue.Flush()
}

// Ref takes a reference on behalf of reason.
func (h *Handle) Ref(reason string) { h.refs.Ref(reason) }

// Unref drops a reference. The handle frees on the last one.
func (h *Handle) Unref(reason string) { h.refs.Unref(reason) }

// free runs once the last reference drops. The sink detaches first so
// backend activity stops reaching the dead handle. The queue close runs on
// its own goroutine because the final unref may come from a closure
// executing on the drainer itself.
func (h *Handle) free() {
	h.pair.SetEventSink(nil)
	h.log.Debug("stream handle released")
	go h.queue.Close()
}
