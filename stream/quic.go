// File: stream/quic.go
//
// Author: rmstar
// License: Apache-2.0
//
// QUIC backend: a quic-go bidirectional stream through the pump adapter.

package stream

import (
	"github.com/quic-go/quic-go"

	"github.com/rmstar/grpc/api"
)

// FromQUIC adapts a bidirectional QUIC stream. The pair assumes sole
// ownership of both stream directions.
func FromQUIC(s quic.Stream) api.EventPair {
	return newPump(quicAdapter{s})
}

type quicAdapter struct{ s quic.Stream }

func (a quicAdapter) Read(p []byte) (int, error)  { return a.s.Read(p) }
func (a quicAdapter) Write(p []byte) (int, error) { return a.s.Write(p) }

// Close tears down both directions. The stream's own Close only finishes
// the send side, so the receive side is cancelled explicitly.
func (a quicAdapter) Close() error {
	a.s.CancelRead(0)
	return a.s.Close()
}
