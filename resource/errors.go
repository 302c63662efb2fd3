// Author: rmstar
// License: Apache-2.0
//
// Error definitions for the resource package.

package resource

import "errors"

var (
	// ErrQuotaExhausted indicates a reservation can never be satisfied
	// because it exceeds the quota's total size.
	ErrQuotaExhausted = errors.New("resource quota exhausted")

	// ErrUserShutdown indicates the resource user was shut down while the
	// reservation was pending, or before it was made.
	ErrUserShutdown = errors.New("resource user shut down")
)
