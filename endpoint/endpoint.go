// File: endpoint/endpoint.go
//
// Author: rmstar
// License: Apache-2.0
//
// StreamEndpoint: the dispatch-driven byte-stream endpoint. One read and
// one write may be pending at a time; each in-flight operation, and the
// armed watchdog, holds a reference that keeps the endpoint alive until
// its completion callback has been scheduled. The only mutex-guarded state
// is the watchdog arming flag; everything else is owned by the
// single-pending contract or is atomic.

package endpoint

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rmstar/grpc/api"
	"github.com/rmstar/grpc/bufseq"
	"github.com/rmstar/grpc/internal/dispatch"
	"github.com/rmstar/grpc/internal/refcount"
	"github.com/rmstar/grpc/resource"
	"github.com/rmstar/grpc/stream"
	"github.com/rmstar/grpc/timers"
)

// pendingOp is one submitted operation: the caller's sequence and the
// completion callback, cleared before the callback is scheduled so the
// callback may submit the next operation.
type pendingOp struct {
	seq *bufseq.Sequence
	cb  api.Callback
}

// StreamEndpoint bridges an api.EventPair to the asynchronous endpoint
// contract.
type StreamEndpoint struct {
	cfg  Config
	peer string

	reader api.ReadStream
	writer api.WriteStream
	handle *stream.Handle

	user   *resource.User
	alloc  *resource.SliceAllocator
	timerQ *timers.Queue
	refs   *refcount.Counter

	sched   api.Scheduler
	ownPool *dispatch.Pool // set when the endpoint runs its own scheduler

	mu         sync.Mutex // guards timerArmed and timer only
	timerArmed bool
	timer      *timers.Timer

	readOp  atomic.Pointer[pendingOp]
	writeOp atomic.Pointer[pendingOp]

	totalBytesRead  atomic.Int64
	bytesWritten    atomic.Int64
	readsCompleted  atomic.Int64
	writesCompleted atomic.Int64
}

var _ api.Endpoint = (*StreamEndpoint)(nil)

// NewStream builds an endpoint over pair. peer identifies the remote for
// errors and logs; quota supplies read buffers. The caller owns the
// returned endpoint and must release it with Destroy.
func NewStream(pair api.EventPair, peer string, quota *resource.Quota, opts ...Option) *StreamEndpoint {
	cfg := buildConfig(opts)
	ep := &StreamEndpoint{
		cfg:    cfg,
		peer:   peer,
		reader: pair.Reader(),
		writer: pair.Writer(),
		sched:  cfg.Scheduler,
	}
	if ep.sched == nil {
		ep.ownPool = dispatch.NewPool(0)
		ep.sched = ep.ownPool
	}
	ep.handle = stream.NewHandle(pair, ep.sched, cfg.Logger)
	ep.user = quota.NewUser(peer, ep.sched)
	ep.alloc = resource.NewSliceAllocator(ep.user, ep.readAllocDone)
	ep.timerQ = timers.New(cfg.Clock, ep.sched)
	ep.refs = refcount.New("endpoint "+peer, 1, ep.free, cfg.refLogger())
	cfg.Logger.Debug("endpoint created", zap.String("peer", peer))
	return ep
}

// Read implements api.Endpoint. dst is reset, filled with the next
// available bytes and handed back through cb. The watchdog arms on the
// first read of a quiet period and disarms when a read completes.
func (ep *StreamEndpoint) Read(dst *bufseq.Sequence, cb api.Callback, urgent bool) {
	op := &pendingOp{seq: dst, cb: cb}
	if !ep.readOp.CompareAndSwap(nil, op) {
		panic("endpoint: Read submitted while a read is pending")
	}
	ep.cfg.Logger.Debug("read submitted",
		zap.String("peer", ep.peer), zap.Bool("urgent", urgent))

	ep.mu.Lock()
	if !ep.timerArmed {
		ep.timerArmed = true
		ep.refs.Ref("timer")
		ep.timer = ep.timerQ.Schedule(ep.cfg.WatchdogTimeout, ep.watchdogFire)
	}
	ep.mu.Unlock()

	dst.Reset()
	ep.refs.Ref("read")
	ep.alloc.Allocate(ep.cfg.ReadSliceSize, 1, dst)
}

// readAllocDone receives the buffer allocation outcome on the scheduler.
func (ep *StreamEndpoint) readAllocDone(err error) {
	if err == nil {
		ep.handle.NotifyOnRead(ep.readAction)
		return
	}
	op := ep.readOp.Load()
	if op == nil {
		panic("endpoint: allocation completed without pending read")
	}
	op.seq.Reset()
	ep.cancelWatchdog()
	ep.finishRead(err)
	ep.refs.Unref("read")
}

// readAction runs once the read half reports readiness. Exactly one
// stream read is attempted per notification.
func (ep *StreamEndpoint) readAction(err error) {
	op := ep.readOp.Load()
	if op == nil {
		panic("endpoint: read notification without pending read")
	}
	// Disarm before completion is scheduled: the callback may submit the
	// next read, which must be able to arm a fresh watchdog.
	ep.cancelWatchdog()
	if err != nil {
		op.seq.Reset()
		ep.alloc.Release()
		ep.finishRead(err)
	} else {
		buf := op.seq.Slice(0)
		n, rerr := ep.reader.Read(buf)
		switch {
		case rerr != nil && !errors.Is(rerr, io.EOF):
			op.seq.Reset()
			ep.alloc.Release()
			ep.finishRead(api.AnnotateUnavailable(fmt.Errorf("read error: %w", rerr), ep.peer))
		case n == 0:
			// End of stream, whether reported as io.EOF or a bare zero.
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
	}
	ep.refs.Unref("read")
}

// finishRead clears the pending read before scheduling its callback, so
// the callback may immediately submit the next read.
func (ep *StreamEndpoint) finishRead(err error) {
	op := ep.readOp.Swap(nil)
	if op == nil {
		panic("endpoint: read completed twice")
	}
	if err != nil {
		ep.cfg.Logger.Debug("read completed with error",
			zap.String("peer", ep.peer), zap.Error(err))
	}
	ep.sched.Schedule(op.cb, err)
}

// Write implements api.Endpoint. The sequence drains through single-shot
// write attempts, one per writability notification, until empty or failed.
func (ep *StreamEndpoint) Write(src *bufseq.Sequence, cb api.Callback) {
	op := &pendingOp{seq: src, cb: cb}
	if !ep.writeOp.CompareAndSwap(nil, op) {
		panic("endpoint: Write submitted while a write is pending")
	}
	ep.cfg.Logger.Debug("write submitted",
		zap.String("peer", ep.peer), zap.Int("length", src.Len()))

	ep.refs.Ref("write")
	if src.Len() == 0 {
		// Nothing to move; complete without touching the stream.
		ep.finishWrite(nil)
		ep.refs.Unref("write")
		return
	}
	ep.handle.NotifyOnWrite(ep.writeAction)
}

// writeAction runs once the write half reports readiness.
func (ep *StreamEndpoint) writeAction(err error) {
	op := ep.writeOp.Load()
	if op == nil {
		panic("endpoint: write notification without pending write")
	}
	if err != nil {
		op.seq.Reset()
		ep.finishWrite(err)
		ep.refs.Unref("write")
		return
	}

	b := op.seq.TakeFirst()
	n, werr := ep.writer.Write(b)
	if werr != nil {
		op.seq.Reset()
		ep.finishWrite(api.AnnotateUnavailable(fmt.Errorf("write failed: %w", werr), ep.peer))
		ep.refs.Unref("write")
		return
	}
	ep.bytesWritten.Add(int64(n))
	if n < len(b) {
		op.seq.UndoTakeFirst(b[n:])
	}
	if op.seq.Len() > 0 {
		ep.handle.NotifyOnWrite(ep.writeAction)
		return
	}
	ep.writesCompleted.Add(1)
	ep.finishWrite(nil)
	ep.refs.Unref("write")
}

func (ep *StreamEndpoint) finishWrite(err error) {
	op := ep.writeOp.Swap(nil)
	if op == nil {
		panic("endpoint: write completed twice")
	}
	if err != nil {
		ep.cfg.Logger.Debug("write completed with error",
			zap.String("peer", ep.peer), zap.Error(err))
	}
	ep.sched.Schedule(op.cb, err)
}

// Shutdown implements api.Endpoint. It disarms the watchdog, closes both
// stream halves, stops notification delivery and fails pending buffer
// allocations. In-flight operations observe the closure through their
// normal completion paths.
func (ep *StreamEndpoint) Shutdown(reason error) {
	if reason == nil {
		reason = ErrEndpointShutdown
	}
	ep.cfg.Logger.Debug("endpoint shutdown",
		zap.String("peer", ep.peer), zap.Error(reason))

	ep.mu.Lock()
	cancelled := false
	if ep.timerArmed {
		ep.timerArmed = false
		cancelled = ep.timer.Cancel()
	}
	ep.mu.Unlock()
	if cancelled {
		ep.refs.Unref("timer")
	}

	if err := multierr.Append(ep.reader.Close(), ep.writer.Close()); err != nil {
		ep.cfg.Logger.Warn("stream close during shutdown",
			zap.String("peer", ep.peer), zap.Error(err))
	}
	ep.handle.Shutdown(reason)
	ep.user.Shutdown()
}

// Destroy implements api.Endpoint. It releases the owner's reference; the
// endpoint frees once in-flight operations have drained.
func (ep *StreamEndpoint) Destroy() {
	ep.cfg.Logger.Debug("endpoint destroy", zap.String("peer", ep.peer))
	ep.refs.Unref("destroy")
}

// free runs on the goroutine that drops the last reference.
func (ep *StreamEndpoint) free() {
	ep.user.Unref()
	err := multierr.Append(ep.reader.Close(), ep.writer.Close())
	if err != nil {
		ep.cfg.Logger.Debug("stream close during free",
			zap.String("peer", ep.peer), zap.Error(err))
	}
	ep.handle.Unref("endpoint")
	if ep.ownPool != nil {
		// The last unref may be running on one of the pool's own workers.
		go ep.ownPool.Close()
	}
	ep.cfg.Logger.Debug("endpoint released", zap.String("peer", ep.peer))
}

// cancelWatchdog disarms the timer after a read completes. When the
// firing already won the race the fire path drops the timer reference
// itself.
func (ep *StreamEndpoint) cancelWatchdog() {
	ep.mu.Lock()
	cancelled := false
	if ep.timerArmed {
		ep.timerArmed = false
		cancelled = ep.timer.Cancel()
	}
	ep.mu.Unlock()
	if cancelled {
		ep.refs.Unref("timer")
	}
}

// watchdogFire runs when the stalled-read deadline passes. A disarm that
// happened after the firing was already scheduled turns this into a
// no-op.
func (ep *StreamEndpoint) watchdogFire(error) {
	ep.mu.Lock()
	armed := ep.timerArmed
	ep.timerArmed = false
	ep.mu.Unlock()
	if !armed {
		ep.refs.Unref("timer")
		return
	}

	ep.cfg.Logger.Error("read not serviced before watchdog deadline",
		zap.String("peer", ep.peer),
		zap.Duration("timeout", ep.cfg.WatchdogTimeout),
		zap.Int64("total_bytes_read", ep.totalBytesRead.Load()))

	// Best-effort diagnostics: observe whether bytes were actually
	// available, then force queued notification work through.
	buf := make([]byte, stallDrainSize)
	n, derr := ep.reader.Read(buf)
	ep.cfg.Logger.Error("watchdog drain",
		zap.String("peer", ep.peer),
		zap.Int("drained", n),
		zap.Error(derr),
		zap.Int64("total_bytes_read", ep.totalBytesRead.Load()))
	ep.handle.RunQueuedWork()

	switch ep.cfg.StallPolicy {
	case StallSurface:
		ep.Shutdown(&api.StatusError{
			Code: api.StatusDeadlineExceeded,
			Peer: ep.peer,
			Err:  ErrReadStalled,
		})
	default:
		if ep.cfg.StallHandler != nil {
			ep.cfg.StallHandler()
		} else {
			ep.cfg.Logger.Fatal("aborting: endpoint read stalled",
				zap.String("peer", ep.peer))
		}
	}
	ep.refs.Unref("timer")
}

// ResourceUser implements api.Endpoint.
func (ep *StreamEndpoint) ResourceUser() api.ResourceUser { return ep.user }

// Peer implements api.Endpoint.
func (ep *StreamEndpoint) Peer() string { return ep.peer }

// FD implements api.Endpoint. Dispatch-driven streams have no descriptor.
func (ep *StreamEndpoint) FD() int { return 0 }

// CanTrackErrors implements api.Endpoint.
func (ep *StreamEndpoint) CanTrackErrors() bool { return false }

// AddToPollset implements api.Endpoint. Readiness arrives on the dispatch
// queue, not from a poller.
func (ep *StreamEndpoint) AddToPollset(any) {}

// AddToPollsetSet implements api.Endpoint.
func (ep *StreamEndpoint) AddToPollsetSet(any) {}

// DeleteFromPollsetSet implements api.Endpoint.
func (ep *StreamEndpoint) DeleteFromPollsetSet(any) {}

// Stats reports endpoint counters.
func (ep *StreamEndpoint) Stats() map[string]int64 {
	return map[string]int64{
		"bytes_read":       ep.totalBytesRead.Load(),
		"bytes_written":    ep.bytesWritten.Load(),
		"reads_completed":  ep.readsCompleted.Load(),
		"writes_completed": ep.writesCompleted.Load(),
	}
}
