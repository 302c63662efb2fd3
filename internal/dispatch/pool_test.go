// File: internal/dispatch/pool_test.go
// Author: rmstar
// License: Apache-2.0

package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsCallbacks(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var ran atomic.Int64
	var wg sync.WaitGroup
	wantErr := errors.New("completion error")
	const n = 500
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Schedule(func(err error) {
			if err != wantErr {
				t.Errorf("callback got %v, want %v", err, wantErr)
			}
			ran.Add(1)
			wg.Done()
		}, wantErr)
	}
	wg.Wait()
	if ran.Load() != n {
		t.Fatalf("ran %d of %d", ran.Load(), n)
	}
}

func TestPoolCloseWaitsForQueued(t *testing.T) {
	p := NewPool(1)
	var ran atomic.Int64
	for i := 0; i < 100; i++ {
		p.Schedule(func(error) { ran.Add(1) }, nil)
	}
	p.Close()
	if got := ran.Load(); got != 100 {
		t.Fatalf("Close returned before queued callbacks ran: %d of 100", got)
	}
}

func TestPoolScheduleAfterCloseStillRuns(t *testing.T) {
	p := NewPool(2)
	p.Close()

	errSentinel := errors.New("sentinel")
	done := make(chan error, 1)
	p.Schedule(func(err error) { done <- err }, errSentinel)
	select {
	case err := <-done:
		if err != errSentinel {
			t.Fatalf("got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("late Schedule never ran the callback")
	}
}

func TestPoolNilCallbackIgnored(t *testing.T) {
	p := NewPool(1)
	defer p.Close()
	p.Schedule(nil, errors.New("ignored"))
}

func TestPoolDefaultWorkerCount(t *testing.T) {
	p := NewPool(0)
	defer p.Close()
	done := make(chan struct{})
	p.Schedule(func(error) { close(done) }, nil)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("default-sized pool did not run callback")
	}
}
