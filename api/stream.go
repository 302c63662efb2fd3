// File: api/stream.go
// Package api
// Author: rmstar
// License: Apache-2.0
//
// Platform stream abstraction. Event-driven backends (socket pairs wrapped
// in userspace, WebSocket, QUIC) surface readability and writability as
// StreamEvent notifications instead of descriptor readiness; the endpoint
// layer bridges those events to completion callbacks.

package api

import "strings"

// StreamEvent is a bit set of stream conditions delivered to an EventSink.
type StreamEvent uint32

const (
	// EventOpenCompleted signals the stream finished connecting.
	EventOpenCompleted StreamEvent = 1 << iota
	// EventHasBytes signals bytes are available on the read half.
	EventHasBytes
	// EventCanWrite signals the write half can accept more bytes.
	EventCanWrite
	// EventEnd signals the peer closed its write half; a final read drains
	// any remaining bytes before reporting closure.
	EventEnd
	// EventError signals a transport fault; LastError carries the cause.
	EventError
)

// Has reports whether bit is set in e.
func (e StreamEvent) Has(bit StreamEvent) bool { return e&bit != 0 }

// String renders the set bits for logs.
func (e StreamEvent) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		bit  StreamEvent
		name string
	}{
		{EventOpenCompleted, "open"},
		{EventHasBytes, "has-bytes"},
		{EventCanWrite, "can-write"},
		{EventEnd, "end"},
		{EventError, "error"},
	} {
		if e.Has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// ReadStream is the read half of a platform stream pair.
//
// Read is single-shot: after an EventHasBytes notification it returns
// whatever bytes are immediately available, up to len(p), without blocking.
// io.EOF reports end of stream once buffered bytes are drained. Endpoints
// treat a zero-byte, nil-error result the same as end of stream, so
// backends return one only when the stream is effectively finished.
type ReadStream interface {
	Read(p []byte) (n int, err error)
	Close() error
}

// WriteStream is the write half of a platform stream pair. Write may accept
// fewer bytes than offered; callers re-attempt the remainder after the next
// EventCanWrite notification.
type WriteStream interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// EventSink receives stream condition notifications. Sinks must not block:
// they run on the backend's delivery goroutine, and heavy work belongs on a
// dispatch queue.
type EventSink func(StreamEvent)

// EventPair couples the two halves of a platform stream with event delivery.
type EventPair interface {
	Reader() ReadStream
	Writer() WriteStream

	// SetEventSink registers the single sink receiving stream events.
	// It must be set before the first I/O; a later call replaces the sink,
	// and a nil sink detaches it. A backend may still invoke a sink it
	// loaded before a concurrent replacement took effect.
	SetEventSink(sink EventSink)

	// LastError returns the transport error behind an EventError, or nil.
	LastError() error
}
