// File: resource/user.go
//
// Author: rmstar
// License: Apache-2.0

package resource

import "github.com/rmstar/grpc/api"

// User is one endpoint's account against a shared Quota. Its mutable fields
// (shutdown, registered, outstanding) are guarded by the quota mutex.
type User struct {
	quota *Quota
	name  string
	sched api.Scheduler

	shutdown    bool
	registered  bool
	outstanding int64
}

var _ api.ResourceUser = (*User)(nil)

// Name implements api.ResourceUser.
func (u *User) Name() string { return u.name }

// Reserve asynchronously claims n bytes. grant runs on the user's scheduler
// with nil once the bytes are granted, ErrQuotaExhausted if n exceeds the
// quota's total size, or ErrUserShutdown if the user is shut down before
// the grant. grant is never invoked on the caller's stack.
func (u *User) Reserve(n int64, grant api.Callback) {
	u.quota.reserve(u, n, grant)
}

// Release returns n reserved bytes to the quota, waking parked reservations
// in FIFO order.
func (u *User) Release(n int64) {
	if n <= 0 {
		return
	}
	q := u.quota
	q.mu.Lock()
	if n > u.outstanding {
		n = u.outstanding
	}
	u.outstanding -= n
	q.mu.Unlock()
	q.release(n)
}

// Shutdown implements api.ResourceUser. Parked reservations fail with
// ErrUserShutdown, as does every later Reserve. Granted bytes stay
// accounted until released.
func (u *User) Shutdown() {
	q := u.quota
	q.mu.Lock()
	if u.shutdown {
		q.mu.Unlock()
		return
	}
	u.shutdown = true
	failed := q.failWaitersOfLocked(u)
	q.mu.Unlock()
	dispatchGrants(failed, ErrUserShutdown)
}

// Unref implements api.ResourceUser. It drops the user's registration and
// returns any still-outstanding bytes to the quota. Idempotent.
func (u *User) Unref() {
	q := u.quota
	q.mu.Lock()
	if !u.registered {
		q.mu.Unlock()
		return
	}
	u.registered = false
	delete(q.users, u)
	leftover := u.outstanding
	u.outstanding = 0
	q.mu.Unlock()
	q.release(leftover)
}
