// File: endpoint/tcp.go
//
// Author: rmstar
// License: Apache-2.0
//
// TCPEndpoint: the api.Endpoint contract over a plain connection. Instead
// of edge notifications it uses goroutine-backed blocking I/O, so there is
// no notification queue to stall and no watchdog. Buffer allocation,
// partial-write handling, error annotation and the reference-counted
// lifetime match the stream backend.

package endpoint

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rmstar/grpc/api"
	"github.com/rmstar/grpc/bufseq"
	"github.com/rmstar/grpc/internal/dispatch"
	"github.com/rmstar/grpc/internal/refcount"
	"github.com/rmstar/grpc/resource"
)

// TCPEndpoint adapts a net.Conn.
type TCPEndpoint struct {
	cfg  Config
	conn net.Conn
	peer string
	fd   int

	user  *resource.User
	alloc *resource.SliceAllocator
	refs  *refcount.Counter

	sched   api.Scheduler
	ownPool *dispatch.Pool

	readOp  atomic.Pointer[pendingOp]
	writeOp atomic.Pointer[pendingOp]

	closeOnce sync.Once

	totalBytesRead  atomic.Int64
	bytesWritten    atomic.Int64
	readsCompleted  atomic.Int64
	writesCompleted atomic.Int64
}

var _ api.Endpoint = (*TCPEndpoint)(nil)

// NewTCP builds an endpoint over conn. An empty peer defaults to the
// connection's remote address.
func NewTCP(conn net.Conn, peer string, quota *resource.Quota, opts ...Option) *TCPEndpoint {
	cfg := buildConfig(opts)
	if peer == "" {
		if addr := conn.RemoteAddr(); addr != nil {
			peer = addr.String()
		}
	}
	ep := &TCPEndpoint{
		cfg:   cfg,
		conn:  conn,
		peer:  peer,
		fd:    connFD(conn),
		sched: cfg.Scheduler,
	}
	if ep.sched == nil {
		ep.ownPool = dispatch.NewPool(0)
		ep.sched = ep.ownPool
	}
	ep.user = quota.NewUser(peer, ep.sched)
	ep.alloc = resource.NewSliceAllocator(ep.user, ep.readAllocDone)
	ep.refs = refcount.New("tcp-endpoint "+peer, 1, ep.free, cfg.refLogger())
	if cfg.NoDelay {
		if err := setNoDelay(conn); err != nil {
			cfg.Logger.Warn("TCP_NODELAY not applied",
				zap.String("peer", peer), zap.Error(err))
		}
	}
	cfg.Logger.Debug("tcp endpoint created",
		zap.String("peer", peer), zap.Int("fd", ep.fd))
	return ep
}

// Read implements api.Endpoint.
func (ep *TCPEndpoint) Read(dst *bufseq.Sequence, cb api.Callback, urgent bool) {
	op := &pendingOp{seq: dst, cb: cb}
	if !ep.readOp.CompareAndSwap(nil, op) {
		panic("endpoint: Read submitted while a read is pending")
	}
	ep.cfg.Logger.Debug("read submitted",
		zap.String("peer", ep.peer), zap.Bool("urgent", urgent))
	dst.Reset()
	ep.refs.Ref("read")
	ep.alloc.Allocate(ep.cfg.ReadSliceSize, 1, dst)
}

func (ep *TCPEndpoint) readAllocDone(err error) {
	op := ep.readOp.Load()
	if op == nil {
		panic("endpoint: allocation completed without pending read")
	}
	if err != nil {
		op.seq.Reset()
		ep.finishRead(err)
		ep.refs.Unref("read")
		return
	}
	go ep.readOnce(op)
}

// readOnce performs the single blocking read backing one submitted
// operation.
func (ep *TCPEndpoint) readOnce(op *pendingOp) {
	buf := op.seq.Slice(0)
	n, rerr := ep.conn.Read(buf)
	switch {
	case rerr != nil && !errors.Is(rerr, io.EOF):
		op.seq.Reset()
		ep.alloc.Release()
		ep.finishRead(api.AnnotateUnavailable(fmt.Errorf("read error: %w", rerr), ep.peer))
	case n == 0:
		op.seq.Reset()
		ep.alloc.Release()
		ep.finishRead(api.AnnotateUnavailable(api.ErrSocketClosed, ep.peer))
	default:
		ep.totalBytesRead.Add(int64(n))
		ep.readsCompleted.Add(1)
		if n < len(buf) {
			op.seq.TrimEnd(len(buf) - n)
		}
		ep.alloc.Release()
		ep.finishRead(nil)
	}
	ep.refs.Unref("read")
}

func (ep *TCPEndpoint) finishRead(err error) {
	op := ep.readOp.Swap(nil)
	if op == nil {
		panic("endpoint: read completed twice")
	}
	ep.sched.Schedule(op.cb, err)
}

// Write implements api.Endpoint.
func (ep *TCPEndpoint) Write(src *bufseq.Sequence, cb api.Callback) {
	op := &pendingOp{seq: src, cb: cb}
	if !ep.writeOp.CompareAndSwap(nil, op) {
		panic("endpoint: Write submitted while a write is pending")
	}
	ep.refs.Ref("write")
	go ep.writeDrain(op)
}

// writeDrain empties the sequence with sequential blocking writes.
func (ep *TCPEndpoint) writeDrain(op *pendingOp) {
	for op.seq.Len() > 0 {
		b := op.seq.TakeFirst()
		n, werr := ep.conn.Write(b)
		ep.bytesWritten.Add(int64(n))
		if werr != nil {
			op.seq.Reset()
			ep.finishWrite(api.AnnotateUnavailable(fmt.Errorf("write failed: %w", werr), ep.peer))
			ep.refs.Unref("write")
			return
		}
	}
	ep.writesCompleted.Add(1)
	ep.finishWrite(nil)
	ep.refs.Unref("write")
}

func (ep *TCPEndpoint) finishWrite(err error) {
	op := ep.writeOp.Swap(nil)
	if op == nil {
		panic("endpoint: write completed twice")
	}
	ep.sched.Schedule(op.cb, err)
}

// Shutdown implements api.Endpoint. Closing the connection unblocks any
// in-flight blocking read or write, which then completes with an error.
func (ep *TCPEndpoint) Shutdown(reason error) {
	if reason == nil {
		reason = ErrEndpointShutdown
	}
	ep.cfg.Logger.Debug("tcp endpoint shutdown",
		zap.String("peer", ep.peer), zap.Error(reason))
	ep.closeConn()
	ep.user.Shutdown()
}

// Destroy implements api.Endpoint.
func (ep *TCPEndpoint) Destroy() {
	ep.refs.Unref("destroy")
}

func (ep *TCPEndpoint) free() {
	ep.user.Unref()
	ep.closeConn()
	if ep.ownPool != nil {
		go ep.ownPool.Close()
	}
	ep.cfg.Logger.Debug("tcp endpoint released", zap.String("peer", ep.peer))
}

func (ep *TCPEndpoint) closeConn() {
	ep.closeOnce.Do(func() {
		if err := ep.conn.Close(); err != nil {
			ep.cfg.Logger.Debug("conn close",
				zap.String("peer", ep.peer), zap.Error(err))
		}
	})
}

// ResourceUser implements api.Endpoint.
func (ep *TCPEndpoint) ResourceUser() api.ResourceUser { return ep.user }

// Peer implements api.Endpoint.
func (ep *TCPEndpoint) Peer() string { return ep.peer }

// FD implements api.Endpoint. The descriptor is resolved at construction
// on platforms that expose one.
func (ep *TCPEndpoint) FD() int { return ep.fd }

// CanTrackErrors implements api.Endpoint.
func (ep *TCPEndpoint) CanTrackErrors() bool { return false }

// AddToPollset implements api.Endpoint.
func (ep *TCPEndpoint) AddToPollset(any) {}

// AddToPollsetSet implements api.Endpoint.
func (ep *TCPEndpoint) AddToPollsetSet(any) {}

// DeleteFromPollsetSet implements api.Endpoint.
func (ep *TCPEndpoint) DeleteFromPollsetSet(any) {}

// Stats reports endpoint counters.
func (ep *TCPEndpoint) Stats() map[string]int64 {
	return map[string]int64{
		"bytes_read":       ep.totalBytesRead.Load(),
		"bytes_written":    ep.bytesWritten.Load(),
		"reads_completed":  ep.readsCompleted.Load(),
		"writes_completed": ep.writesCompleted.Load(),
	}
}
