// File: timers/timers_test.go
// Author: rmstar
// License: Apache-2.0

package timers

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rmstar/grpc/api"
)

func TestFiresAfterDeadline(t *testing.T) {
	mock := clock.NewMock()
	q := New(mock, api.InlineScheduler{})

	fired := 0
	q.Schedule(60*time.Second, func(err error) {
		if err != nil {
			t.Errorf("timer callback got %v", err)
		}
		fired++
	})

	mock.Add(59 * time.Second)
	if fired != 0 {
		t.Fatal("fired before the deadline")
	}
	mock.Add(2 * time.Second)
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
	mock.Add(time.Hour)
	if fired != 1 {
		t.Fatalf("fired again later: %d", fired)
	}
}

func TestCancelPreventsCallback(t *testing.T) {
	mock := clock.NewMock()
	q := New(mock, api.InlineScheduler{})

	fired := false
	tm := q.Schedule(time.Second, func(error) { fired = true })
	if !tm.Cancel() {
		t.Fatal("Cancel before deadline reported failure")
	}
	mock.Add(time.Minute)
	if fired {
		t.Fatal("cancelled timer callback ran")
	}
	if tm.Cancel() {
		t.Fatal("second Cancel reported success")
	}
}

func TestCancelAfterFireReportsFalse(t *testing.T) {
	mock := clock.NewMock()
	q := New(mock, api.InlineScheduler{})

	fired := false
	tm := q.Schedule(time.Second, func(error) { fired = true })
	mock.Add(time.Second)
	if !fired {
		t.Fatal("timer did not fire")
	}
	if tm.Cancel() {
		t.Fatal("Cancel after firing reported success")
	}
}

func TestMultipleTimersFireInDeadlineOrder(t *testing.T) {
	mock := clock.NewMock()
	q := New(mock, api.InlineScheduler{})

	var order []int
	q.Schedule(3*time.Second, func(error) { order = append(order, 3) })
	q.Schedule(1*time.Second, func(error) { order = append(order, 1) })
	q.Schedule(2*time.Second, func(error) { order = append(order, 2) })

	mock.Add(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("fire order = %v", order)
	}
}

func TestNilClockDefaultsToWall(t *testing.T) {
	q := New(nil, api.InlineScheduler{})
	done := make(chan struct{})
	q.Schedule(time.Millisecond, func(error) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wall-clock timer never fired")
	}
}
