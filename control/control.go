// File: control/control.go
//
// Author: rmstar
// License: Apache-2.0

package control

import "sync"

// Probe reports one component's current state. Probes run on the
// Snapshot caller and must not block.
type Probe func() any

// Registry holds named probes.
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewRegistry creates an empty probe registry.
func NewRegistry() *Registry {
	return &Registry{probes: make(map[string]Probe)}
}

// Register installs or replaces the probe under name.
func (r *Registry) Register(name string, p Probe) {
	r.mu.Lock()
	r.probes[name] = p
	r.mu.Unlock()
}

// Deregister removes the probe under name, if any.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	delete(r.probes, name)
	r.mu.Unlock()
}

// Snapshot evaluates every probe and returns the combined state.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.probes))
	for name, p := range r.probes {
		out[name] = p()
	}
	return out
}

// Counters adapts a counter-map source, such as an endpoint's or quota's
// Stats method, into a Probe.
func Counters(fn func() map[string]int64) Probe {
	return func() any { return fn() }
}
