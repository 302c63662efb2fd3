// Author: rmstar
// License: Apache-2.0
//
// Error definitions for the endpoint package.

package endpoint

import "errors"

var (
	// ErrEndpointShutdown is the shutdown reason pending operations observe
	// when Shutdown is called without one.
	ErrEndpointShutdown = errors.New("endpoint shut down")

	// ErrReadStalled indicates the stalled-read watchdog tripped. Under
	// StallSurface it is the shutdown reason the pending read observes.
	ErrReadStalled = errors.New("read not serviced before watchdog deadline")
)
