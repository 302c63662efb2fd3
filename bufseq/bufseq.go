// File: bufseq/bufseq.go
// Author: rmstar
// License: Apache-2.0

// Package bufseq provides Sequence, an ordered collection of byte slices
// treated as one logical byte stream. Endpoints fill a Sequence on read and
// drain one on write; keeping the data as discrete slices avoids copying
// when buffers move between the transport and the RPC layer.
//
// A Sequence is owned by exactly one party at a time. The endpoint contract
// hands ownership to the endpoint while an operation is pending and back to
// the caller on completion, so the type itself is unsynchronized.
package bufseq

import "fmt"

// Sequence is an ordered list of byte slices. The zero value is an empty
// sequence ready for use.
type Sequence struct {
	slices [][]byte
	length int
}

// Reset drops every slice. The backing arrays are released to the garbage
// collector, not reused.
func (s *Sequence) Reset() {
	for i := range s.slices {
		s.slices[i] = nil
	}
	s.slices = s.slices[:0]
	s.length = 0
}

// Append adds b to the end of the sequence, taking ownership of it. The
// caller must not modify b afterwards. Empty slices are dropped.
func (s *Sequence) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	s.slices = append(s.slices, b)
	s.length += len(b)
}

// AppendCopy adds a copy of b, leaving ownership of b with the caller.
func (s *Sequence) AppendCopy(b []byte) {
	if len(b) == 0 {
		return
	}
	c := make([]byte, len(b))
	copy(c, b)
	s.Append(c)
}

// Len returns the total byte length across all slices.
func (s *Sequence) Len() int { return s.length }

// Count returns the number of slices.
func (s *Sequence) Count() int { return len(s.slices) }

// Slice returns the i-th slice without copying. The caller must treat it as
// read-only while it remains part of the sequence.
func (s *Sequence) Slice(i int) []byte { return s.slices[i] }

// TakeFirst removes and returns the first slice. It panics on an empty
// sequence; callers check Len first.
func (s *Sequence) TakeFirst() []byte {
	if len(s.slices) == 0 {
		panic("bufseq: TakeFirst on empty sequence")
	}
	b := s.slices[0]
	s.slices[0] = nil
	s.slices = s.slices[1:]
	s.length -= len(b)
	return b
}

// UndoTakeFirst puts b back at the front of the sequence. Write paths use
// it to return the unwritten remainder of a slice after partial acceptance.
func (s *Sequence) UndoTakeFirst(b []byte) {
	if len(b) == 0 {
		return
	}
	s.slices = append(s.slices, nil)
	copy(s.slices[1:], s.slices)
	s.slices[0] = b
	s.length += len(b)
}

// TrimEnd removes the last n bytes. Read paths allocate a full-sized buffer
// and trim the tail down to what actually arrived. It panics if n exceeds
// Len.
func (s *Sequence) TrimEnd(n int) {
	if n < 0 || n > s.length {
		panic(fmt.Sprintf("bufseq: TrimEnd(%d) on sequence of %d bytes", n, s.length))
	}
	for n > 0 {
		last := len(s.slices) - 1
		b := s.slices[last]
		if n >= len(b) {
			n -= len(b)
			s.length -= len(b)
			s.slices[last] = nil
			s.slices = s.slices[:last]
			continue
		}
		s.slices[last] = b[:len(b)-n]
		s.length -= n
		n = 0
	}
}

// MoveInto appends the entire contents of s to dst and leaves s empty. No
// bytes are copied.
func (s *Sequence) MoveInto(dst *Sequence) {
	if s == dst {
		return
	}
	for _, b := range s.slices {
		dst.Append(b)
	}
	s.slices = s.slices[:0]
	s.length = 0
}

// Materialize flattens the sequence into a single newly allocated slice.
// Diagnostic and test paths use it; the I/O paths never do.
func (s *Sequence) Materialize() []byte {
	out := make([]byte, 0, s.length)
	for _, b := range s.slices {
		out = append(out, b...)
	}
	return out
}
