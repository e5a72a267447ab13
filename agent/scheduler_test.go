package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsTasksIndependently(t *testing.T) {
	var fast, slow int64
	sched := NewScheduler(time.Second,
		Task{Name: "fast", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) {
			atomic.AddInt64(&fast, 1)
		}},
		Task{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) {
			atomic.AddInt64(&slow, 1)
		}},
	)

	sched.Start(context.Background())
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&fast) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	// Both tasks ran immediately on start; the slow one only once
	assert.EqualValues(t, 1, atomic.LoadInt64(&slow))
}

func TestSchedulerStopHaltsWork(t *testing.T) {
	var runs int64
	sched := NewScheduler(time.Second,
		Task{Name: "tick", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) {
			atomic.AddInt64(&runs, 1)
		}},
	)

	sched.Start(context.Background())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 2
	}, 2*time.Second, time.Millisecond)

	sched.Stop()
	after := atomic.LoadInt64(&runs)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&runs))
}

func TestSchedulerStopBounded(t *testing.T) {
	block := make(chan struct{})
	sched := NewScheduler(50*time.Millisecond,
		Task{Name: "stuck", Interval: time.Hour, Run: func(ctx context.Context) {
			<-block
		}},
	)

	sched.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	// A worker that never returns is abandoned after the stop timeout
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return within the stop timeout")
	}
	close(block)
}

func TestSchedulerStartTwiceIsNoop(t *testing.T) {
	var runs int64
	sched := NewScheduler(time.Second,
		Task{Name: "once", Interval: time.Hour, Run: func(ctx context.Context) {
			atomic.AddInt64(&runs, 1)
		}},
	)
	ctx := context.Background()
	sched.Start(ctx)
	sched.Start(ctx)
	defer sched.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt64(&runs))
}
