// File: internal/dispatch/serial.go
//
// Author: rmstar
// License: Apache-2.0
//
// SerialQueue executes closures strictly in submission order on a single
// drainer goroutine. Stream backends deliver their event notifications
// through one of these, which is what makes the endpoint's per-direction
// state machines safe without locking.

package dispatch

import (
	"sync"

	"github.com/eapache/queue"
)

// SerialQueue is a FIFO of closures drained by one goroutine.
type SerialQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	work   *queue.Queue
	closed bool
	done   chan struct{}
}

// NewSerialQueue creates the queue and starts its drainer goroutine.
func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{
		work: queue.New(),
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.drain()
	return q
}

// Enqueue submits fn for execution after everything already queued. After
// Close, fn runs immediately on the caller's goroutine instead; late work is
// executed, never dropped.
func (q *SerialQueue) Enqueue(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		fn()
		return
	}
	q.work.Add(fn)
	q.cond.Signal()
	q.mu.Unlock()
}

// Flush runs everything currently queued on the caller's goroutine, in
// order, stealing it from the drainer. A closure the drainer already picked
// up is not waited for. Diagnostic paths use Flush to force progress when
// the drainer may be starved.
func (q *SerialQueue) Flush() {
	q.mu.Lock()
	var fns []func()
	for q.work.Length() > 0 {
		fns = append(fns, q.work.Remove().(func()))
	}
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Length returns the number of closures waiting to run.
func (q *SerialQueue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.work.Length()
}

// Close drains remaining work and stops the drainer. It returns after the
// drainer has exited; closures queued before Close all run before it does.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done
}

func (q *SerialQueue) drain() {
	defer close(q.done)
	q.mu.Lock()
	for {
		for q.work.Length() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.work.Length() > 0 {
			fn := q.work.Remove().(func())
			q.mu.Unlock()
			fn()
			q.mu.Lock()
			continue
		}
		// closed and empty
		q.mu.Unlock()
		return
	}
}
