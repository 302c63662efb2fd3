// Package control
// Author: rmstar
// License: Apache-2.0
//
// Runtime introspection for endpoint deployments. Components expose their
// counters as named probes on a shared registry; operators read an atomic
// snapshot of everything at once, typically behind a debug HTTP route.
package control
