package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sanonone/minigraph/pkg/metrics"
	"golang.org/x/sync/semaphore"
)

// Pool runs tasks on goroutines, at most parallelism at a time.
//
// Submission blocks while every slot is busy (backpressure, never a drop).
// A panicking task is recovered and counted; it does not take the pool down.
type Pool struct {
	sem         *semaphore.Weighted
	parallelism int

	// mu orders wg.Add in Run against the final wg.Wait in Close.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	running atomic.Int64
	panics  atomic.Int64
}

// NewPool creates a pool. A parallelism below 1 selects DefaultParallelism.
func NewPool(parallelism int) *Pool {
	if parallelism < 1 {
		parallelism = DefaultParallelism()
	}
	return &Pool{
		sem:         semaphore.NewWeighted(int64(parallelism)),
		parallelism: parallelism,
	}
}

// Run schedules task, blocking until a slot frees up.
func (p *Pool) Run(task Task) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	// Acquire only fails on context cancellation; Background never cancels.
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		p.wg.Done()
		return fmt.Errorf("acquire executor slot: %w", err)
	}

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.recoverTask()

		p.running.Add(1)
		defer p.running.Add(-1)
		task()
	}()
	return nil
}

// RunBatch schedules tasks in order. See TaskRunner for the wait semantics.
func (p *Pool) RunBatch(tasks []Task, wait bool) (int, error) {
	var done sync.WaitGroup
	for i, task := range tasks {
		if wait {
			done.Add(1)
			inner := task
			task = func() {
				defer done.Done()
				inner()
			}
		}
		if err := p.Run(task); err != nil {
			if wait {
				done.Done()
				done.Wait()
			}
			return i, err
		}
	}
	if wait {
		done.Wait()
	}
	return len(tasks), nil
}

// Parallelism returns the configured number of concurrent slots.
func (p *Pool) Parallelism() int {
	return p.parallelism
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Panics returns the number of tasks that panicked since creation.
func (p *Pool) Panics() int64 {
	return p.panics.Load()
}

// Close rejects further submissions and waits for scheduled tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) recoverTask() {
	if r := recover(); r != nil {
		p.panics.Add(1)
		metrics.RunnerPanics.Inc()
		slog.Error("Executor task panicked", "panic", r)
	}
}
