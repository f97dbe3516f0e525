package reactive

// Event is a registry of callbacks invoked synchronously, in registration
// order, on the goroutine that calls Invoke.
//
// Every operation on an Event takes its exclusive lock: concurrent Invoke
// calls are serialized and a Hook cannot be added or removed while an
// invocation is running. An Event must be created with NewEvent.
type Event[A any] struct {
	reg *registry[A]
}

// NewEvent creates an empty event.
func NewEvent[A any](opts ...Option) *Event[A] {
	return &Event[A]{reg: newRegistry[A](newConfig(opts))}
}

// Name returns the name set with WithName.
func (e *Event[A]) Name() string {
	return e.reg.name
}

// Hook registers fn to be called on every future Invoke and returns the
// token that controls the registration. Callbacks are appended: they run
// after every callback hooked earlier. The same function may be hooked
// more than once.
//
// Hooking a closed event returns a Hook that is not alive.
func (e *Event[A]) Hook(fn func(A)) *Hook[A] {
	if fn == nil {
		panic("reactive: nil callback")
	}
	s := e.reg.add(fn)
	return newHook(e.reg, s)
}

// Invoke calls every registered callback with args, in registration order.
// The exclusive lock is held for the whole cycle, so a callback must not
// hook, close a Hook of, or invoke the same event.
//
// If a callback panics the cycle stops, the event is poisoned and the panic
// is returned as a *PanicError. A poisoned event returns a *PoisonError from
// every later Invoke until ClearPoison is called.
func (e *Event[A]) Invoke(args A) error {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()

	if e.reg.closed.Load() {
		return ErrClosed
	}
	if err := e.reg.check(); err != nil {
		return err
	}
	return e.reg.invokeLocked(args, nil)
}

// Len returns the number of registered callbacks.
func (e *Event[A]) Len() int {
	return int(e.reg.subscribers.Load())
}

// Close removes every callback. Hooks created from this event stop being
// alive and later Invoke calls return ErrClosed. Close is idempotent.
func (e *Event[A]) Close() {
	e.reg.close()
}

// IsPoisoned reports whether a callback panicked during an earlier Invoke.
func (e *Event[A]) IsPoisoned() bool {
	return e.reg.poison.Load() != nil
}

// ClearPoison clears the poisoned state.
func (e *Event[A]) ClearPoison() {
	e.reg.clearPoison()
}

// Stats returns activity statistics.
func (e *Event[A]) Stats() Stats {
	return e.reg.stats()
}
