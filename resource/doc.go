// File: resource/doc.go
// Author: rmstar
// License: Apache-2.0

// Package resource implements the memory quota endpoints draw their read
// buffers from. A Quota is a byte budget shared by any number of Users, one
// per endpoint. Allocation is asynchronous: when the budget cannot cover a
// request the request parks in FIFO order and is granted as earlier buffers
// are released, which is how read-side back-pressure propagates to slow
// consumers.
//
// SliceAllocator is the per-endpoint front end. It converts a granted
// reservation into buffers appended to a bufseq.Sequence and fires a
// completion callback on the user's scheduler.
package resource
