// File: resource/allocator.go
//
// Author: rmstar
// License: Apache-2.0

package resource

import (
	"fmt"
	"sync/atomic"

	"github.com/rmstar/grpc/api"
	"github.com/rmstar/grpc/bufseq"
)

// SliceAllocator converts quota reservations into read buffers for one
// endpoint. It is bound at construction to a User and a completion callback;
// each Allocate fires that callback on the user's scheduler, with the target
// sequence filled on success.
//
// At most one Allocate may be in flight. A second call before the previous
// completion is a programming error and panics.
type SliceAllocator struct {
	user *User
	done api.Callback

	inflight atomic.Bool
	reserved atomic.Int64

	// Written by Allocate, read by the grant closure. The scheduler handoff
	// orders the accesses.
	target *bufseq.Sequence
	size   int
	count  int
}

// NewSliceAllocator binds an allocator to user. done receives nil with the
// target sequence filled, or the denial error.
func NewSliceAllocator(user *User, done api.Callback) *SliceAllocator {
	if done == nil {
		panic("resource: SliceAllocator with nil completion")
	}
	return &SliceAllocator{user: user, done: done}
}

// Allocate asynchronously obtains count buffers of size bytes each,
// appending them to dst once the quota grants the reservation. The bytes
// stay charged to the user until Release.
func (a *SliceAllocator) Allocate(size, count int, dst *bufseq.Sequence) {
	if size <= 0 || count <= 0 {
		panic(fmt.Sprintf("resource: Allocate(%d, %d)", size, count))
	}
	if !a.inflight.CompareAndSwap(false, true) {
		panic("resource: Allocate while previous allocation pending")
	}
	a.target = dst
	a.size = size
	a.count = count
	a.user.Reserve(int64(size)*int64(count), a.granted)
}

// granted runs on the user's scheduler with the reservation outcome.
func (a *SliceAllocator) granted(err error) {
	if err == nil {
		for i := 0; i < a.count; i++ {
			a.target.Append(make([]byte, a.size))
		}
		a.reserved.Store(int64(a.size) * int64(a.count))
	}
	a.target = nil
	// Pending state clears before the completion runs so the callback may
	// start the next Allocate.
	a.inflight.Store(false)
	a.done(err)
}

// Release returns the bytes reserved by the last completed Allocate to the
// quota. Idempotent between allocations.
func (a *SliceAllocator) Release() {
	if n := a.reserved.Swap(0); n > 0 {
		a.user.Release(n)
	}
}
