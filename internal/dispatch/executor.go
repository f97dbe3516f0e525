package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Result describes the outcome of a single callback execution.
type Result struct {
	// Panicked is true if the callback panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace captured at the point of panic.
	PanicStack []byte

	// Duration is how long the callback ran.
	Duration time.Duration
}

// OK returns true if the callback returned normally.
func (r Result) OK() bool {
	return !r.Panicked
}

// PanicHandler is called after a callback panics.
// It receives the panic value and the captured stack trace.
type PanicHandler func(panicValue any, stack []byte)

// Executor runs callbacks synchronously with panic recovery.
// An Executor is safe for concurrent use.
type Executor struct {
	panicHandler PanicHandler

	runs        atomic.Uint64
	panics      atomic.Uint64
	totalTimeNs atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithPanicHandler sets the handler invoked after a callback panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run calls fn on the current goroutine and reports how it finished.
// A panic inside fn is recovered and described in the Result.
func (e *Executor) Run(fn func()) (result Result) {
	start := time.Now()
	e.runs.Add(1)

	defer func() {
		result.Duration = time.Since(start)
		e.totalTimeNs.Add(result.Duration.Nanoseconds())

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack
			e.panics.Add(1)

			if e.panicHandler != nil {
				func() {
					// A failing panic handler must not take the caller down with it.
					defer func() { _ = recover() }()
					e.panicHandler(r, stack)
				}()
			}
		}
	}()

	fn()
	return result
}

// Stats returns execution statistics.
// Counters are read individually, so a snapshot taken during concurrent
// execution may be slightly inconsistent.
func (e *Executor) Stats() Stats {
	runs := e.runs.Load()
	totalNs := e.totalTimeNs.Load()

	var avgNs int64
	if runs > 0 {
		avgNs = totalNs / int64(runs)
	}

	return Stats{
		Runs:          runs,
		Panics:        e.panics.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Stats contains statistics for an Executor.
type Stats struct {
	// Runs is the total number of callbacks executed.
	Runs uint64

	// Panics is the number of callbacks that panicked.
	Panics uint64

	// TotalDuration is the cumulative time spent in callbacks.
	TotalDuration time.Duration

	// AvgDuration is the average callback execution time.
	AvgDuration time.Duration
}
