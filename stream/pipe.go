// File: stream/pipe.go
//
// Author: rmstar
// License: Apache-2.0
//
// In-memory cross-connected stream pair. Each direction is a bounded byte
// buffer, so writers see genuine partial acceptance and back-pressure, and
// readers see data arrive in the same edge-notified way the socket-backed
// pairs deliver it. Loopback traffic and tests run on this backend.

package stream

import (
	"io"
	"sync"

	"github.com/rmstar/grpc/api"
)

const defaultPipeCapacity = 64 * 1024

// pipeBuf is one direction's bounded buffer.
type pipeBuf struct {
	mu      sync.Mutex
	cap     int
	data    []byte
	wClosed bool // writer half closed; readers drain then see EOF
	rClosed bool // reader half closed; writes fail
}

// pipeSide is one end of the pair: it reads from in and writes to out.
type pipeSide struct {
	in   *pipeBuf
	out  *pipeBuf
	peer *pipeSide

	mu      sync.Mutex
	sink    api.EventSink
	lastErr error
}

var _ api.EventPair = (*pipeSide)(nil)

// Pipe returns two cross-connected event pairs. Bytes written on one side
// become readable on the other; each direction buffers at most capacity
// bytes (a default applies when capacity <= 0), and a full buffer yields
// zero-byte writes until the reader drains.
func Pipe(capacity int) (api.EventPair, api.EventPair) {
	if capacity <= 0 {
		capacity = defaultPipeCapacity
	}
	ab := &pipeBuf{cap: capacity}
	ba := &pipeBuf{cap: capacity}
	a := &pipeSide{in: ba, out: ab}
	b := &pipeSide{in: ab, out: ba}
	a.peer = b
	b.peer = a
	return a, b
}

// SetEventSink implements api.EventPair. The current stream conditions are
// delivered to the new sink synchronously, so a sink attached after traffic
// started still observes latched readability.
func (s *pipeSide) SetEventSink(sink api.EventSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	if sink == nil {
		return
	}
	ev := api.EventOpenCompleted
	s.in.mu.Lock()
	if len(s.in.data) > 0 {
		ev |= api.EventHasBytes
	}
	if s.in.wClosed {
		ev |= api.EventEnd
	}
	s.in.mu.Unlock()
	s.out.mu.Lock()
	if len(s.out.data) < s.out.cap && !s.out.rClosed && !s.out.wClosed {
		ev |= api.EventCanWrite
	}
	s.out.mu.Unlock()
	sink(ev)
}

// Reader implements api.EventPair.
func (s *pipeSide) Reader() api.ReadStream { return (*pipeReader)(s) }

// Writer implements api.EventPair.
func (s *pipeSide) Writer() api.WriteStream { return (*pipeWriter)(s) }

// LastError implements api.EventPair.
func (s *pipeSide) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *pipeSide) signal(ev api.StreamEvent) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (s *pipeSide) setLastError(err error) {
	s.mu.Lock()
	if s.lastErr == nil {
		s.lastErr = err
	}
	s.mu.Unlock()
}

type pipeReader pipeSide

// Read drains buffered bytes. Leftover data re-latches readability on this
// side so the next notification registration fires without new traffic.
func (r *pipeReader) Read(p []byte) (int, error) {
	s := (*pipeSide)(r)
	b := s.in
	b.mu.Lock()
	if b.rClosed {
		b.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(b.data) == 0 {
		closed := b.wClosed
		b.mu.Unlock()
		if closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	residue := len(b.data)
	b.mu.Unlock()

	if residue > 0 {
		s.signal(api.EventHasBytes)
	}
	if n > 0 {
		s.peer.signal(api.EventCanWrite)
	}
	return n, nil
}

// Close shuts the read half. The peer's writes fail from here on, and the
// peer is woken with an error event.
func (r *pipeReader) Close() error {
	s := (*pipeSide)(r)
	b := s.in
	b.mu.Lock()
	if b.rClosed {
		b.mu.Unlock()
		return nil
	}
	b.rClosed = true
	b.data = nil
	b.mu.Unlock()
	s.peer.setLastError(io.ErrClosedPipe)
	s.peer.signal(api.EventError)
	return nil
}

type pipeWriter pipeSide

// Write appends up to the free capacity and reports how much was taken. A
// full buffer accepts zero bytes; the drain on the other side raises
// EventCanWrite when space returns.
func (w *pipeWriter) Write(p []byte) (int, error) {
	s := (*pipeSide)(w)
	b := s.out
	b.mu.Lock()
	if b.wClosed || b.rClosed {
		b.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	space := b.cap - len(b.data)
	if space == 0 {
		b.mu.Unlock()
		return 0, nil
	}
	n := min(space, len(p))
	wasEmpty := len(b.data) == 0
	b.data = append(b.data, p[:n]...)
	spaceLeft := b.cap - len(b.data)
	b.mu.Unlock()

	if wasEmpty && n > 0 {
		s.peer.signal(api.EventHasBytes)
	}
	if spaceLeft > 0 {
		// Re-latch writability for the next single-shot attempt.
		s.signal(api.EventCanWrite)
	}
	return n, nil
}

// Close shuts the write half. The peer drains what is buffered and then
// reads end of stream.
func (w *pipeWriter) Close() error {
	s := (*pipeSide)(w)
	b := s.out
	b.mu.Lock()
	if b.wClosed {
		b.mu.Unlock()
		return nil
	}
	b.wClosed = true
	b.mu.Unlock()
	s.peer.signal(api.EventEnd)
	return nil
}
