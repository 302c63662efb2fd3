// File: stream/doc.go
// Author: rmstar
// License: Apache-2.0

// Package stream bridges event-driven platform streams to the completion
// callbacks the endpoint layer runs on. A Handle owns the serial dispatch
// queue a stream pair's events are delivered on and converts those edge
// notifications into one-shot read/write callbacks; end of stream and
// transport faults latch permanently so late registrations still complete.
//
// The package also ships the stream backends: an in-memory Pipe pair for
// loopback and tests, and pump adapters wrapping net.Conn, gorilla
// WebSocket connections, and QUIC streams into the same api.EventPair
// contract.
package stream
