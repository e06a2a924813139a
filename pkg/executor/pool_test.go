package executor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunBatchWait(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var sum atomic.Int64
	tasks := make([]Task, 100)
	for i := range tasks {
		n := int64(i)
		tasks[i] = func() { sum.Add(n) }
	}

	n, err := p.RunBatch(tasks, true)
	if err != nil || n != len(tasks) {
		t.Fatalf("RunBatch = %d,%v want %d,nil", n, err, len(tasks))
	}
	// With wait=true every task has completed here.
	if got := sum.Load(); got != 4950 {
		t.Errorf("sum = %d, want 4950", got)
	}
}

func TestPoolRunBatchNoWaitNeedsExplicitJoin(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var wg sync.WaitGroup
	var count atomic.Int64
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			count.Add(1)
		}
	}
	wg.Add(len(tasks))
	if _, err := p.RunBatch(tasks, false); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	if count.Load() != 20 {
		t.Errorf("count = %d, want 20", count.Load())
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const limit = 3
	p := NewPool(limit)
	defer p.Close()

	var current, peak atomic.Int64
	tasks := make([]Task, 30)
	for i := range tasks {
		tasks[i] = func() {
			c := current.Add(1)
			for {
				old := peak.Load()
				if c <= old || peak.CompareAndSwap(old, c) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
		}
	}
	if _, err := p.RunBatch(tasks, true); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > limit {
		t.Errorf("peak concurrency %d exceeds limit %d", peak.Load(), limit)
	}
}

func TestPoolSurvivesPanics(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	ran := false
	_, err := p.RunBatch([]Task{
		func() { panic("boom") },
		func() { ran = true },
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("task after the panicking one did not run")
	}
	if p.Panics() != 1 {
		t.Errorf("Panics() = %d, want 1", p.Panics())
	}
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(1)
	p.Close()

	if err := p.Run(func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close = %v, want ErrClosed", err)
	}
	n, err := p.RunBatch([]Task{func() {}, func() {}}, true)
	if !errors.Is(err, ErrClosed) || n != 0 {
		t.Errorf("RunBatch after Close = %d,%v want 0,ErrClosed", n, err)
	}
}

func TestInlineRunner(t *testing.T) {
	var order []int
	n, err := Inline{}.RunBatch([]Task{
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}, false)
	if err != nil || n != 2 {
		t.Fatalf("RunBatch = %d,%v", n, err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
	if (Inline{}).Parallelism() != 1 {
		t.Error("Inline parallelism must be 1")
	}
}

func TestDefaultParallelism(t *testing.T) {
	if DefaultParallelism() < 1 {
		t.Error("DefaultParallelism must be positive")
	}
	if NewPool(0).Parallelism() != DefaultParallelism() {
		t.Error("NewPool(0) should use DefaultParallelism")
	}
}
