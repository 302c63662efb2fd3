// Package benchmarks
// Author: rmstar
// License: Apache-2.0
//
// Performance benchmarks for the endpoint stack.

package benchmarks

import (
	"sync"
	"testing"

	"github.com/rmstar/grpc/api"
	"github.com/rmstar/grpc/bufseq"
	"github.com/rmstar/grpc/endpoint"
	"github.com/rmstar/grpc/internal/dispatch"
	"github.com/rmstar/grpc/resource"
	"github.com/rmstar/grpc/stream"
)

// BenchmarkSequenceChurn measures slice bookkeeping under the take, undo,
// trim cycle the write path performs.
func BenchmarkSequenceChurn(b *testing.B) {
	payload := make([]byte, 4096)
	var seq bufseq.Sequence
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq.Append(payload)
		taken := seq.TakeFirst()
		seq.UndoTakeFirst(taken[2048:])
		seq.Reset()
	}
}

// BenchmarkQuotaReserveRelease measures uncontended quota accounting.
func BenchmarkQuotaReserveRelease(b *testing.B) {
	quota := resource.NewQuota("bench", 1<<30)
	user := quota.NewUser("bench-user", api.InlineScheduler{})
	grant := func(error) {}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user.Reserve(8192, grant)
		user.Release(8192)
	}
}

// BenchmarkPoolSchedule measures completion dispatch throughput across
// the worker pool.
func BenchmarkPoolSchedule(b *testing.B) {
	pool := dispatch.NewPool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	wg.Add(b.N)
	cb := func(error) { wg.Done() }
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Schedule(cb, nil)
	}
	wg.Wait()
}

// BenchmarkSerialQueue measures ordered work submission.
func BenchmarkSerialQueue(b *testing.B) {
	q := dispatch.NewSerialQueue()
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(b.N)
	fn := func() { wg.Done() }
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Enqueue(fn)
	}
	wg.Wait()
}

// BenchmarkEndpointWrite measures the full write path over an in-process
// stream pair, including notification and completion dispatch.
func BenchmarkEndpointWrite(b *testing.B) {
	quota := resource.NewQuota("bench", 1<<30)
	local, remote := stream.Pipe(1 << 16)
	ep := endpoint.NewStream(local, "bench-peer", quota)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	payload := make([]byte, 4096)
	drain := make([]byte, 8192)
	done := make(chan error, 1)
	cb := func(err error) { done <- err }

	var src bufseq.Sequence
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.AppendCopy(payload)
		ep.Write(&src, cb)
		if err := <-done; err != nil {
			b.Fatal(err)
		}
		for rem := len(payload); rem > 0; {
			n, err := remote.Reader().Read(drain)
			if err != nil {
				b.Fatal(err)
			}
			rem -= n
		}
	}
}

// BenchmarkEndpointRead measures the read path, delivery included.
func BenchmarkEndpointRead(b *testing.B) {
	quota := resource.NewQuota("bench", 1<<30)
	local, remote := stream.Pipe(1 << 16)
	ep := endpoint.NewStream(local, "bench-peer", quota)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	payload := make([]byte, 4096)
	done := make(chan error, 1)
	cb := func(err error) { done <- err }

	var dst bufseq.Sequence
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := remote.Writer().Write(payload); err != nil {
			b.Fatal(err)
		}
		ep.Read(&dst, cb, false)
		if err := <-done; err != nil {
			b.Fatal(err)
		}
	}
}
