// File: internal/dispatch/doc.go
// Author: rmstar
// License: Apache-2.0

// Package dispatch provides the closure-execution machinery behind the
// endpoint layer: SerialQueue, a strictly ordered single-drainer queue that
// platform stream events are delivered on, and Pool, a worker pool
// implementing api.Scheduler for completion callbacks.
//
// Both types drain rather than drop on shutdown. Work handed to a closed
// queue or pool runs on the caller's goroutine, so completion callbacks are
// never lost during teardown.
package dispatch
