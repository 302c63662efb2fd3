// File: stream/pump_test.go
// Author: rmstar
// License: Apache-2.0

package stream

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rmstar/grpc/api"
)

// eventChan bridges asynchronous pump events into test assertions.
func eventChan() (api.EventSink, <-chan api.StreamEvent) {
	ch := make(chan api.StreamEvent, 32)
	return func(ev api.StreamEvent) {
		select {
		case ch <- ev:
		default:
		}
	}, ch
}

func waitFor(t *testing.T, ch <-chan api.StreamEvent, bit api.StreamEvent) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Has(bit) {
				return
			}
		case <-deadline:
			t.Fatalf("event %v never delivered", bit)
		}
	}
}

func TestPumpDeliversBytes(t *testing.T) {
	c1, c2 := net.Pipe()
	p1 := FromConn(c1)
	p2 := FromConn(c2)

	s1, _ := eventChan()
	s2, ch2 := eventChan()
	p1.SetEventSink(s1)
	p2.SetEventSink(s2)

	go func() {
		if _, err := p1.Writer().Write([]byte("ping")); err != nil {
			t.Errorf("write: %v", err)
		}
	}()

	waitFor(t, ch2, api.EventHasBytes)
	buf := make([]byte, 16)
	n, err := p2.Reader().Read(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("read = %q, %v", buf[:n], err)
	}

	_ = p1.Reader().Close()
	_ = p2.Reader().Close()
}

func TestPumpLargeTransferAccumulates(t *testing.T) {
	c1, c2 := net.Pipe()
	p1 := FromConn(c1)
	p2 := FromConn(c2)

	s2, ch2 := eventChan()
	p2.SetEventSink(s2)
	p1.SetEventSink(func(api.StreamEvent) {})

	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64 KiB
	go func() {
		if _, err := p1.Writer().Write(payload); err != nil {
			t.Errorf("write: %v", err)
		}
		_ = p1.Writer().Close()
	}()

	var got []byte
	buf := make([]byte, 8192)
	for len(got) < len(payload) {
		waitFor(t, ch2, api.EventHasBytes)
		for {
			n, err := p2.Reader().Read(buf)
			if err != nil {
				t.Fatalf("read after %d bytes: %v", len(got), err)
			}
			if n == 0 {
				break
			}
			got = append(got, buf[:n]...)
		}
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload corrupted: %d bytes", len(got))
	}
	_ = p2.Reader().Close()
}

func TestPumpPeerCloseDeliversEndThenEOF(t *testing.T) {
	c1, c2 := net.Pipe()
	p2 := FromConn(c2)
	s2, ch2 := eventChan()
	p2.SetEventSink(s2)

	_ = c1.Close()
	waitFor(t, ch2, api.EventEnd)
	if _, err := p2.Reader().Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("read = %v, want io.EOF", err)
	}
	_ = p2.Reader().Close()
}

func TestPumpWriteErrorRaisesErrorEvent(t *testing.T) {
	c1, c2 := net.Pipe()
	p1 := FromConn(c1)
	s1, ch1 := eventChan()
	p1.SetEventSink(s1)

	_ = c2.Close()
	// The local pump also fails once the peer is gone; what matters here is
	// the write path's own error reporting.
	var writeErr error
	for i := 0; i < 50; i++ {
		if _, writeErr = p1.Writer().Write([]byte("x")); writeErr != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if writeErr == nil {
		t.Fatal("write to closed peer never failed")
	}
	waitFor(t, ch1, api.EventError)
	if p1.LastError() == nil {
		t.Fatal("LastError not recorded")
	}
	_ = p1.Reader().Close()
}

func TestPumpLocalCloseStopsReads(t *testing.T) {
	c1, c2 := net.Pipe()
	p1 := FromConn(c1)
	p1.SetEventSink(func(api.StreamEvent) {})
	defer c2.Close()

	if err := p1.Reader().Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := p1.Reader().Read(make([]byte, 1)); err != io.ErrClosedPipe {
		t.Fatalf("read after close = %v", err)
	}
	// Close is idempotent across both halves.
	if err := p1.Writer().Close(); err != nil {
		t.Fatalf("second close = %v", err)
	}
}

func TestPumpInitialConditionsIncludeWritability(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	p1 := FromConn(c1)
	s1, ch1 := eventChan()
	p1.SetEventSink(s1)
	waitFor(t, ch1, api.EventCanWrite)
}
