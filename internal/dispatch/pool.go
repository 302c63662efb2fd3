// File: internal/dispatch/pool.go
//
// Author: rmstar
// License: Apache-2.0
//
// Pool runs completion callbacks on a fixed set of worker goroutines. It is
// the default api.Scheduler wired into endpoints.

package dispatch

import (
	"runtime"
	"sync"

	"github.com/eapache/queue"

	"github.com/rmstar/grpc/api"
)

type completion struct {
	cb  api.Callback
	err error
}

// Pool is a fixed worker pool implementing api.Scheduler.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	work   *queue.Queue
	closed bool
	wg     sync.WaitGroup
}

var _ api.Scheduler = (*Pool)(nil)

// NewPool starts a pool with the given number of workers. A count <= 0
// defaults to the number of CPUs.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{work: queue.New()}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Schedule implements api.Scheduler. Callbacks run in submission order per
// worker but concurrently across workers. After Close the callback runs on
// a fresh goroutine; it is never dropped.
func (p *Pool) Schedule(cb api.Callback, err error) {
	if cb == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		go cb(err)
		return
	}
	p.work.Add(completion{cb: cb, err: err})
	p.cond.Signal()
	p.mu.Unlock()
}

// Close stops the workers after the queued callbacks have run.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	p.mu.Lock()
	for {
		for p.work.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.work.Length() > 0 {
			c := p.work.Remove().(completion)
			p.mu.Unlock()
			c.cb(c.err)
			p.mu.Lock()
			continue
		}
		p.mu.Unlock()
		return
	}
}
