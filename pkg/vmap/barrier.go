package vmap

import (
	"sync"
	"sync/atomic"
)

// barrier joins the tasks of one superstep and keeps the first failure.
type barrier struct {
	wg     sync.WaitGroup
	once   sync.Once
	err    error
	failed atomic.Bool
}

func (b *barrier) fail(err error) {
	b.once.Do(func() {
		b.err = err
		b.failed.Store(true)
	})
}

// aborted lets running tasks stop early once any task failed.
func (b *barrier) aborted() bool {
	return b.failed.Load()
}

// wait blocks until every task accounted with wg.Add has called wg.Done.
func (b *barrier) wait() error {
	b.wg.Wait()
	return b.err
}
