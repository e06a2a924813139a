package executor

// Inline runs every task synchronously on the submitting goroutine.
// It is the reference runner for single-threaded execution and tests.
type Inline struct{}

func (Inline) Run(task Task) error {
	task()
	return nil
}

func (Inline) RunBatch(tasks []Task, _ bool) (int, error) {
	for _, task := range tasks {
		task()
	}
	return len(tasks), nil
}

func (Inline) Parallelism() int {
	return 1
}
