// File: api/errors.go
// Package api
// Author: rmstar
// License: Apache-2.0
//
// Error values and the status classification attached to transport failures
// before they surface to the RPC layer.

package api

import (
	"errors"
	"fmt"
)

// ErrSocketClosed reports a zero-length transfer: the peer closed the
// stream. Every backend maps its native end-of-stream condition to this
// value so callers can match it with errors.Is.
var ErrSocketClosed = errors.New("socket closed")

// StatusCode classifies a transport error for upstream status mapping.
type StatusCode int

const (
	StatusOK StatusCode = iota
	StatusUnavailable
	StatusResourceExhausted
	StatusDeadlineExceeded
	StatusInternal
)

// String implements fmt.Stringer.
func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusResourceExhausted:
		return "resource-exhausted"
	case StatusDeadlineExceeded:
		return "deadline-exceeded"
	case StatusInternal:
		return "internal"
	default:
		return fmt.Sprintf("status(%d)", int(c))
	}
}

// StatusError annotates a transport error with the peer identity and a
// status classification. It wraps the cause, so errors.Is and errors.As see
// through it.
type StatusError struct {
	Code StatusCode
	Peer string
	Err  error
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Peer == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: peer %q: %v", e.Code, e.Peer, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StatusError) Unwrap() error { return e.Err }

// AnnotateUnavailable wraps err with the peer identity and the Unavailable
// classification applied to endpoint read and write failures. A nil err
// passes through unchanged.
func AnnotateUnavailable(err error, peer string) error {
	if err == nil {
		return nil
	}
	return &StatusError{Code: StatusUnavailable, Peer: peer, Err: err}
}

// StatusOf extracts the classification from err, descending through wrapped
// errors. Unclassified errors report StatusInternal; nil reports StatusOK.
func StatusOf(err error) StatusCode {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return StatusInternal
}
