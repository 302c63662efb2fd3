// File: api/testing.go
// Package api
// Author: rmstar
// License: Apache-2.0
//
// Function-field mocks for the core contracts, shared by tests across the
// module. Unset fields fall back to inert defaults.

package api

import "github.com/rmstar/grpc/bufseq"

// MockEndpoint implements Endpoint with overridable function fields.
type MockEndpoint struct {
	ReadFunc     func(dst *bufseq.Sequence, cb Callback, urgent bool)
	WriteFunc    func(src *bufseq.Sequence, cb Callback)
	ShutdownFunc func(reason error)
	DestroyFunc  func()
	PeerName     string
}

var _ Endpoint = (*MockEndpoint)(nil)

// Read implements Endpoint. Without ReadFunc the callback completes
// immediately with success and an empty sequence.
func (m *MockEndpoint) Read(dst *bufseq.Sequence, cb Callback, urgent bool) {
	if m.ReadFunc != nil {
		m.ReadFunc(dst, cb, urgent)
		return
	}
	dst.Reset()
	cb(nil)
}

// Write implements Endpoint. Without WriteFunc the sequence is discarded and
// the callback completes with success.
func (m *MockEndpoint) Write(src *bufseq.Sequence, cb Callback) {
	if m.WriteFunc != nil {
		m.WriteFunc(src, cb)
		return
	}
	src.Reset()
	cb(nil)
}

// Shutdown implements Endpoint.
func (m *MockEndpoint) Shutdown(reason error) {
	if m.ShutdownFunc != nil {
		m.ShutdownFunc(reason)
	}
}

// Destroy implements Endpoint.
func (m *MockEndpoint) Destroy() {
	if m.DestroyFunc != nil {
		m.DestroyFunc()
	}
}

// ResourceUser implements Endpoint.
func (m *MockEndpoint) ResourceUser() ResourceUser { return nil }

// Peer implements Endpoint.
func (m *MockEndpoint) Peer() string {
	if m.PeerName == "" {
		return "mock:endpoint"
	}
	return m.PeerName
}

// FD implements Endpoint.
func (m *MockEndpoint) FD() int { return 0 }

// CanTrackErrors implements Endpoint.
func (m *MockEndpoint) CanTrackErrors() bool { return false }

// AddToPollset implements Endpoint.
func (m *MockEndpoint) AddToPollset(any) {}

// AddToPollsetSet implements Endpoint.
func (m *MockEndpoint) AddToPollsetSet(any) {}

// DeleteFromPollsetSet implements Endpoint.
func (m *MockEndpoint) DeleteFromPollsetSet(any) {}

// InlineScheduler runs callbacks synchronously on the caller's goroutine.
// Tests use it to make completion ordering deterministic.
type InlineScheduler struct{}

var _ Scheduler = InlineScheduler{}

// Schedule implements Scheduler.
func (InlineScheduler) Schedule(cb Callback, err error) { cb(err) }
