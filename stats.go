package reactive

import "time"

// Stats is a point-in-time snapshot of a registry's activity.
// Counters are read without the registry lock, so a snapshot taken while
// callbacks are running may be slightly inconsistent.
type Stats struct {
	// Name is the registry name set with WithName.
	Name string

	// Invocations is the number of notification cycles started.
	Invocations uint64

	// Callbacks is the number of callbacks executed across all cycles.
	Callbacks uint64

	// Panics is the number of callbacks that panicked.
	Panics uint64

	// CallbackTime is the cumulative time spent inside callbacks.
	CallbackTime time.Duration

	// Subscribers is the number of currently registered callbacks.
	Subscribers int

	// Poisoned reports whether the registry is poisoned.
	Poisoned bool

	// Closed reports whether the registry has been closed.
	Closed bool
}
