// Author: rmstar
// License: Apache-2.0
//
// Error definitions for the stream package.

package stream

import "errors"

// ErrHandleShutdown indicates a notification registration completed with an
// error because the handle was shut down. The shutdown reason, when one was
// given, is wrapped alongside it.
var ErrHandleShutdown = errors.New("stream handle shut down")
