// File: resource/quota.go
//
// Author: rmstar
// License: Apache-2.0
//
// Quota tracks a shared byte budget and the FIFO of reservations waiting for
// it. All quota and user state is guarded by the single quota mutex; grant
// callbacks are handed to each user's scheduler outside the lock.

package resource

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/rmstar/grpc/api"
)

// waiter is one parked reservation. served flips under the quota mutex when
// the waiter has been granted or failed; the FIFO drops served entries
// lazily as they reach the front.
type waiter struct {
	user   *User
	n      int64
	grant  api.Callback
	served bool
}

// Quota is a byte budget shared by the Users created from it.
type Quota struct {
	name string

	mu      sync.Mutex
	size    int64
	free    int64
	closed  bool
	users   map[*User]struct{}
	waiters *queue.Queue
}

// NewQuota creates a quota holding size bytes.
func NewQuota(name string, size int64) *Quota {
	if size <= 0 {
		panic(fmt.Sprintf("resource: quota %q created with size %d", name, size))
	}
	return &Quota{
		name:    name,
		size:    size,
		free:    size,
		users:   make(map[*User]struct{}),
		waiters: queue.New(),
	}
}

// Name returns the quota's identity for logs.
func (q *Quota) Name() string { return q.name }

// NewUser registers a per-endpoint user. name is conventionally the peer
// string. Grant callbacks for this user's reservations are run on sched.
func (q *Quota) NewUser(name string, sched api.Scheduler) *User {
	u := &User{quota: q, name: name, sched: sched}
	q.mu.Lock()
	if q.closed {
		u.shutdown = true
	} else {
		q.users[u] = struct{}{}
		u.registered = true
	}
	q.mu.Unlock()
	return u
}

// Resize changes the total budget. Growing services parked reservations in
// order; shrinking lets the quota run a deficit that future releases pay
// down before anything new is granted.
func (q *Quota) Resize(size int64) {
	if size <= 0 {
		panic(fmt.Sprintf("resource: quota %q resized to %d", q.name, size))
	}
	q.mu.Lock()
	delta := size - q.size
	q.size = size
	q.free += delta
	grants := q.serviceLocked()
	q.mu.Unlock()
	dispatchGrants(grants, nil)
}

// Close shuts down every user created from the quota. Parked reservations
// fail with ErrUserShutdown; the quota accepts no new users afterwards.
func (q *Quota) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	var failed []*waiter
	for u := range q.users {
		u.shutdown = true
		failed = append(failed, q.failWaitersOfLocked(u)...)
	}
	q.mu.Unlock()
	dispatchGrants(failed, ErrUserShutdown)
}

// Stats reports quota counters in the map form shared by the module's
// observable components.
func (q *Quota) Stats() map[string]int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	waiting := int64(0)
	for i := 0; i < q.waiters.Length(); i++ {
		if !q.waiters.Get(i).(*waiter).served {
			waiting++
		}
	}
	return map[string]int64{
		"size":    q.size,
		"free":    q.free,
		"users":   int64(len(q.users)),
		"waiters": waiting,
	}
}

// reserve claims n bytes for u, parking the request behind earlier waiters.
// Called with q.mu NOT held. The grant callback is always scheduled, never
// invoked on this stack.
func (q *Quota) reserve(u *User, n int64, grant api.Callback) {
	q.mu.Lock()
	if u.shutdown {
		q.mu.Unlock()
		u.sched.Schedule(grant, ErrUserShutdown)
		return
	}
	if n > q.size {
		q.mu.Unlock()
		u.sched.Schedule(grant, ErrQuotaExhausted)
		return
	}
	q.waiters.Add(&waiter{user: u, n: n, grant: grant})
	grants := q.serviceLocked()
	q.mu.Unlock()
	dispatchGrants(grants, nil)
}

// release returns n bytes to the budget and services the FIFO.
func (q *Quota) release(n int64) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	q.free += n
	if q.free > q.size {
		q.free = q.size
	}
	grants := q.serviceLocked()
	q.mu.Unlock()
	dispatchGrants(grants, nil)
}

// serviceLocked grants waiters from the front while the budget covers them.
// The head waiter blocks everything behind it; order is strict.
func (q *Quota) serviceLocked() []*waiter {
	var grants []*waiter
	for q.waiters.Length() > 0 {
		w := q.waiters.Peek().(*waiter)
		if w.served {
			q.waiters.Remove()
			continue
		}
		if q.free < w.n {
			break
		}
		q.free -= w.n
		w.user.outstanding += w.n
		w.served = true
		q.waiters.Remove()
		grants = append(grants, w)
	}
	return grants
}

// failWaitersOfLocked marks every parked reservation of u as served and
// returns them so the caller can fail their grants outside the lock.
func (q *Quota) failWaitersOfLocked(u *User) []*waiter {
	var failed []*waiter
	for i := 0; i < q.waiters.Length(); i++ {
		w := q.waiters.Get(i).(*waiter)
		if w.user == u && !w.served {
			w.served = true
			failed = append(failed, w)
		}
	}
	return failed
}

func dispatchGrants(ws []*waiter, err error) {
	for _, w := range ws {
		w.user.sched.Schedule(w.grant, err)
	}
}
