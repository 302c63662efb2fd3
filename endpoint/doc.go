// File: endpoint/doc.go
// Author: rmstar
// License: Apache-2.0

// Package endpoint implements the api.Endpoint backends.
//
// StreamEndpoint adapts an event-driven platform stream pair: reads and
// writes are driven by edge notifications bridged through a stream.Handle,
// read buffers come from a shared memory quota, and a watchdog guards
// against a notification queue that stops being serviced. TCPEndpoint
// provides the same contract over a plain connection with goroutine-backed
// blocking I/O.
//
// Both backends enforce the single-pending-operation contract per
// direction and carry reference-counted lifetimes, so shutdown is safe to
// invoke while operations are in flight.
package endpoint
