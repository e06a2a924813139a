// Package executor provides the task scheduling abstraction the superstep
// engine dispatches vertex work through.
package executor

import (
	"errors"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// ErrClosed is returned when submitting to a runner that has been closed.
var ErrClosed = errors.New("executor is closed")

// Task is a unit of work.
type Task func()

// TaskRunner accepts tasks for execution.
//
// Run blocks until capacity is available. Returning from Run means the task
// has been scheduled, not that it has completed: callers that need completion
// must track it themselves.
//
// RunBatch submits tasks in order and returns how many were accepted. When
// wait is true it returns only after every accepted task has completed. When
// wait is false completion is the caller's responsibility.
//
// Parallelism reports how many tasks can make progress at the same time. It is
// meant for submitters that batch many tiny tasks into fewer larger ones.
type TaskRunner interface {
	Run(task Task) error
	RunBatch(tasks []Task, wait bool) (int, error)
	Parallelism() int
}

// DefaultParallelism returns the number of logical cores of the host.
func DefaultParallelism() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}
