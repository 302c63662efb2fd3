// File: api/endpoint.go
// Package api defines the Endpoint contract and its completion-callback model.
// Author: rmstar
// License: Apache-2.0

package api

import "github.com/rmstar/grpc/bufseq"

// Callback is the completion callback of an asynchronous endpoint operation.
// A nil error means the operation succeeded.
type Callback func(err error)

// Scheduler enqueues completion callbacks for execution outside the caller's
// stack. Implementations choose the execution context; callers must not
// assume a callback runs on any particular goroutine. A Scheduler never
// drops a scheduled callback, including callbacks handed to it while the
// scheduler is shutting down.
type Scheduler interface {
	Schedule(cb Callback, err error)
}

// SchedulerFunc adapts a plain function to the Scheduler interface.
type SchedulerFunc func(cb Callback, err error)

// Schedule implements Scheduler.
func (f SchedulerFunc) Schedule(cb Callback, err error) { f(cb, err) }

// ResourceUser is the per-endpoint view of a shared memory quota. The
// concrete implementation lives in the resource package; the interface keeps
// backends decoupled from it.
type ResourceUser interface {
	// Name returns the identity the user was registered under.
	Name() string
	// Shutdown fails pending and future allocations against this user.
	Shutdown()
	// Unref releases the user's registration with its quota.
	Unref()
}

// Endpoint is a bidirectional byte-stream connection exposing a uniform
// asynchronous surface over heterogeneous transports.
//
// At most one read and one write may be pending at a time. Submitting a
// second operation in a direction that already has one pending is a
// programming error and panics. Read and write are independent directions
// and may be pending simultaneously. Completion callbacks are invoked
// exactly once per submitted operation and may run on any goroutine;
// resubmitting from inside a completion callback is legal.
type Endpoint interface {
	// Read resets dst and fills it with the next bytes available from the
	// peer, then invokes cb. Short reads are valid: dst holds whatever was
	// available, at least one byte on success. A zero-length transfer is
	// reported as an error because the peer closed the stream. urgent is
	// accepted for contract compatibility and does not change behavior.
	Read(dst *bufseq.Sequence, cb Callback, urgent bool)

	// Write drains src into the underlying stream, retrying after partial
	// acceptance, and invokes cb once the full sequence has been written or
	// an error occurred. src is consumed: after completion it holds only
	// whatever was not written.
	Write(src *bufseq.Sequence, cb Callback)

	// Shutdown closes the underlying streams and forces outstanding
	// operations to complete with an error. Safe to call concurrently with
	// pending operations and idempotent. It does not release the endpoint;
	// Destroy does.
	Shutdown(reason error)

	// Destroy releases the owner's reference. The endpoint is freed once
	// every in-flight operation has completed; callbacks still pending at
	// Destroy time are still delivered.
	Destroy()

	// ResourceUser returns the memory-quota user charged for read buffers,
	// or nil when the backend does not meter allocations.
	ResourceUser() ResourceUser

	// Peer returns the peer identity string.
	Peer() string

	// FD returns the underlying file descriptor, or 0 when the backend is
	// not descriptor-based.
	FD() int

	// CanTrackErrors reports whether the backend can observe transport
	// errors out of band from read/write completions.
	CanTrackErrors() bool

	// Pollset registration hooks. Backends that deliver readiness through
	// events instead of descriptor polling implement these as no-ops.
	AddToPollset(pollset any)
	AddToPollsetSet(set any)
	DeleteFromPollsetSet(set any)
}
