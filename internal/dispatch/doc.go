// Package dispatch runs subscriber callbacks on the caller's goroutine with
// panic recovery and timing.
//
// A registry hands each callback to an Executor while it holds its own lock.
// The Executor never spawns goroutines and never retries: a panicking callback
// is reported through the Result (and the optional PanicHandler) and it is up
// to the caller to decide whether the remaining callbacks still run.
package dispatch
