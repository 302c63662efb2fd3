// File: stream/pump.go
//
// Author: rmstar
// License: Apache-2.0
//
// Pump adapter: turns a blocking byte transport into an api.EventPair. One
// goroutine reads the transport into a bounded staging buffer and raises
// readability events; writes go straight to the transport, which provides
// its own back-pressure by blocking. The staging high-water mark parks the
// pump, so a slow consumer stalls the transport instead of buffering
// without bound.

package stream

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rmstar/grpc/api"
)

const (
	pumpChunkSize = 32 * 1024
	pumpHighWater = 1 << 20
)

// FromConn adapts a stream-oriented network connection.
func FromConn(c net.Conn) api.EventPair { return newPump(c) }

type pumpPair struct {
	rwc io.ReadWriteCloser

	mu      sync.Mutex
	sink    api.EventSink
	lastErr error

	rmu    sync.Mutex
	rcond  *sync.Cond
	staged []byte
	rEOF   bool
	rErr   error
	closed bool

	closeOnce sync.Once
	closeErr  error
}

var _ api.EventPair = (*pumpPair)(nil)

func newPump(rwc io.ReadWriteCloser) *pumpPair {
	p := &pumpPair{rwc: rwc}
	p.rcond = sync.NewCond(&p.rmu)
	go p.pump()
	return p
}

// pump moves bytes from the transport into the staging buffer until end of
// stream, a fault, or local close.
func (p *pumpPair) pump() {
	buf := make([]byte, pumpChunkSize)
	for {
		n, err := p.rwc.Read(buf)
		if n > 0 {
			p.rmu.Lock()
			for len(p.staged) >= pumpHighWater && !p.closed {
				p.rcond.Wait()
			}
			if p.closed {
				p.rmu.Unlock()
				return
			}
			wasEmpty := len(p.staged) == 0
			p.staged = append(p.staged, buf[:n]...)
			p.rmu.Unlock()
			if wasEmpty {
				p.signal(api.EventHasBytes)
			}
		}
		if err != nil {
			p.rmu.Lock()
			closed := p.closed
			if errors.Is(err, io.EOF) {
				p.rEOF = true
			} else {
				p.rErr = err
			}
			p.rmu.Unlock()
			if closed {
				return
			}
			if errors.Is(err, io.EOF) {
				p.signal(api.EventEnd)
			} else {
				p.setLastError(err)
				p.signal(api.EventError)
			}
			return
		}
	}
}

// SetEventSink implements api.EventPair. Current conditions are delivered
// to the new sink synchronously; the write side of a pump is always ready
// because writes block on the transport directly.
func (p *pumpPair) SetEventSink(sink api.EventSink) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
	if sink == nil {
		return
	}
	ev := api.EventOpenCompleted | api.EventCanWrite
	p.rmu.Lock()
	if len(p.staged) > 0 {
		ev |= api.EventHasBytes
	}
	if p.rEOF {
		ev |= api.EventEnd
	}
	if p.rErr != nil {
		ev |= api.EventError
	}
	p.rmu.Unlock()
	sink(ev)
}

// Reader implements api.EventPair.
func (p *pumpPair) Reader() api.ReadStream { return pumpReader{p} }

// Writer implements api.EventPair.
func (p *pumpPair) Writer() api.WriteStream { return pumpWriter{p} }

// LastError implements api.EventPair.
func (p *pumpPair) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *pumpPair) signal(ev api.StreamEvent) {
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (p *pumpPair) setLastError(err error) {
	p.mu.Lock()
	if p.lastErr == nil {
		p.lastErr = err
	}
	p.mu.Unlock()
}

func (p *pumpPair) close() error {
	p.closeOnce.Do(func() {
		p.rmu.Lock()
		p.closed = true
		p.rcond.Broadcast()
		p.rmu.Unlock()
		p.closeErr = p.rwc.Close()
	})
	return p.closeErr
}

type pumpReader struct{ p *pumpPair }

// Read drains the staging buffer, re-latching readability when bytes
// remain, and wakes the pump if it was parked at the high-water mark.
func (r pumpReader) Read(b []byte) (int, error) {
	p := r.p
	p.rmu.Lock()
	if p.closed {
		p.rmu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(p.staged) == 0 {
		eof, rerr := p.rEOF, p.rErr
		p.rmu.Unlock()
		if rerr != nil {
			return 0, rerr
		}
		if eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(b, p.staged)
	p.staged = p.staged[n:]
	residue := len(p.staged)
	p.rcond.Broadcast()
	p.rmu.Unlock()

	if residue > 0 {
		p.signal(api.EventHasBytes)
	}
	return n, nil
}

func (r pumpReader) Close() error { return r.p.close() }

type pumpWriter struct{ p *pumpPair }

// Write hands the bytes to the transport, which blocks until they are
// accepted. Success re-latches writability for the next single-shot
// attempt; a fault is returned and also raised as an error event so the
// read direction learns of it.
func (w pumpWriter) Write(b []byte) (int, error) {
	p := w.p
	n, err := p.rwc.Write(b)
	if err != nil {
		p.setLastError(err)
		p.signal(api.EventError)
		return n, err
	}
	p.signal(api.EventCanWrite)
	return n, nil
}

func (w pumpWriter) Close() error { return w.p.close() }
