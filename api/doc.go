// File: api/doc.go
// Package api
// Author: rmstar
// License: Apache-2.0

// Package api defines the contracts shared by every transport backend in the
// library: the Endpoint interface with its asynchronous read/write/shutdown
// surface, the Scheduler used to run completion callbacks, the platform
// stream abstraction (EventPair) for backends that report readiness through
// events rather than file-descriptor polling, and the status classification
// attached to transport errors.
//
// Packages under this module depend on api and never on each other's
// concrete types, so backends stay swappable behind the same contract.
package api
