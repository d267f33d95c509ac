package server

import "fmt"

// runRequest is a unit of work for the worker goroutine.
type runRequest struct {
	fn   func() interface{}
	done chan runResult
}

// runResult holds the return value from a run.
type runResult struct {
	value interface{}
	err   error
}

// RunWorker serializes engine runs through a single goroutine. Runs are
// CPU-bound and unmetered in instruction count, so the server funnels them
// one at a time instead of letting a burst of hot programs occupy every
// core.
type RunWorker struct {
	requests chan runRequest
	quit     chan struct{}
}

// NewRunWorker creates a RunWorker and starts the processing goroutine.
func NewRunWorker() *RunWorker {
	w := &RunWorker{
		requests: make(chan runRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *RunWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function, recovering from panics.
func (w *RunWorker) execute(fn func() interface{}) runResult {
	var result runResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn()
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *RunWorker) Do(fn func() interface{}) (interface{}, error) {
	req := runRequest{
		fn:   fn,
		done: make(chan runResult, 1),
	}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine.
func (w *RunWorker) Stop() {
	close(w.quit)
}
