// Package scheduler runs one-shot jobs at their due time.
//
// Jobs are keyed by id, so a pending job can be replaced or cancelled. A
// single loop goroutine watches the earliest due time, and a weighted
// semaphore caps how many jobs run at once.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

type Job func(ctx context.Context)

type Scheduler struct {
	sem *semaphore.Weighted

	running  atomic.Bool
	inFlight atomic.Int64

	// lifeMu guards Start/Stop; mu guards the queue and entries.
	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	jobs   sync.WaitGroup

	mu      sync.Mutex
	queue   jobQueue
	entries map[int64]*entry

	wake chan struct{}
}

func New(maxInFlight int) (*Scheduler, error) {
	if maxInFlight <= 0 {
		return nil, errors.New("maxInFlight must be > 0")
	}
	return &Scheduler{
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		entries: make(map[int64]*entry),
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
	}, nil
}

func (s *Scheduler) Start() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.loop(ctx, s.done)

	slog.Info("scheduler started", "pending", s.Pending())
	return true
}

// Stop halts the loop and waits for running jobs to return. Running jobs
// keep their context; only Cancel ends one early. Jobs that have not
// started yet stay queued for the next Start.
func (s *Scheduler) Stop() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.jobs.Wait()
	s.running.Store(false)

	slog.Info("scheduler stopped", "pending", s.Pending())
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Schedule registers job to run at at, replacing any pending job with
// the same id. A job already running for id is left to finish.
func (s *Scheduler) Schedule(id int64, at time.Time, job Job) {
	s.mu.Lock()
	if old, ok := s.entries[id]; ok && old.index >= 0 {
		heap.Remove(&s.queue, old.index)
	}
	e := &entry{id: id, at: at, job: job}
	s.entries[id] = e
	heap.Push(&s.queue, e)
	s.mu.Unlock()

	s.signal()
}

// Cancel drops the pending job for id, or cancels the context of the
// running one. It reports whether a job was found.
func (s *Scheduler) Cancel(id int64) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
		if e.index >= 0 {
			heap.Remove(&s.queue, e.index)
		} else if e.cancel != nil {
			e.cancel()
		}
	}
	s.mu.Unlock()

	if ok {
		s.signal()
	}
	return ok
}

// Pending returns the number of jobs waiting for their due time or a
// free slot.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait, ok := s.nextWait()
		if ok && wait <= 0 {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return
			}
			if !s.launchDue(ctx) {
				s.sem.Release(1)
			}
			continue
		}

		var due <-chan time.Time
		if ok {
			timer.Reset(wait)
			due = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-due:
		}
		timer.Stop()
	}
}

func (s *Scheduler) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return 0, false
	}
	return time.Until(s.queue[0].at), true
}

// launchDue starts the earliest job if it is still due. The caller holds
// one semaphore slot, which the job releases when it returns.
func (s *Scheduler) launchDue(ctx context.Context) bool {
	s.mu.Lock()
	if s.queue.Len() == 0 || time.Now().Before(s.queue[0].at) {
		s.mu.Unlock()
		return false
	}

	// Job contexts are detached from the loop: Stop waits, Cancel aborts.
	e := heap.Pop(&s.queue).(*entry)
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	s.jobs.Add(1)
	s.inFlight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.jobs.Done()
		defer s.sem.Release(1)
		defer s.inFlight.Add(-1)
		defer cancel()
		defer s.forget(e)

		s.safeRun(jobCtx, e)
	}()
	return true
}

func (s *Scheduler) forget(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[e.id] == e {
		delete(s.entries, e.id)
	}
}

func (s *Scheduler) safeRun(ctx context.Context, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler job panic recovered", "id", e.id, "panic", r)
		}
	}()

	start := time.Now()
	e.job(ctx)
	slog.Debug("scheduler job completed",
		"id", e.id,
		"lateness_ms", start.Sub(e.at).Milliseconds(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
