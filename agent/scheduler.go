package agent

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one periodic concern (sync, heartbeat) run by the scheduler.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler runs independent periodic worker loops with explicit start/stop
// and a shared cancellation context. Workers never block each other; they
// only share the settings store, whose per-key writes are atomic.
type Scheduler struct {
	tasks       []Task
	stopTimeout time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler builds a scheduler that waits up to stopTimeout per Stop call
// for workers to finish their in-flight work.
func NewScheduler(stopTimeout time.Duration, tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks, stopTimeout: stopTimeout}
}

// Start launches one worker loop per task. Each task runs immediately, then
// once per interval. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()
	log.Printf("▶️  Worker started: %s (every %v)", task.Name, task.Interval)
	for {
		task.Run(ctx)
		select {
		case <-ctx.Done():
			log.Printf("⏹️  Worker stopped: %s", task.Name)
			return
		case <-time.After(task.Interval):
		}
	}
}

// Stop cancels all workers and waits up to the stop timeout. In-flight HTTP
// calls are allowed to complete; a worker that does not come back in time is
// abandoned with a warning.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.stopTimeout):
		log.Printf("⚠️  Workers did not stop within %v, abandoning", s.stopTimeout)
	}
}
