package reactive

import (
	"runtime"
	"sync/atomic"
)

// HookState represents the lifecycle state of a Hook.
type HookState int32

const (
	// HookActive means the Hook will remove its callback when closed or collected.
	HookActive HookState = iota

	// HookClosed means the Hook has been closed. Its callback was removed if
	// the registry still held it.
	HookClosed

	// HookLeaked means the Hook was detached with Leak. Its callback stays
	// registered until the registry is closed or collected.
	HookLeaked
)

// String returns a human-readable state name.
func (s HookState) String() string {
	switch s {
	case HookActive:
		return "active"
	case HookClosed:
		return "closed"
	case HookLeaked:
		return "leaked"
	default:
		return "unknown"
	}
}

// Hook is a subscription token returned by Event.Hook and Property.Hook.
//
// A Hook refers to its registry and to its own callback weakly, so it never
// keeps an Event or Property alive. Closing the Hook removes the callback;
// a Hook that becomes unreachable without being closed or leaked removes its
// callback when the garbage collector reclaims it.
//
// Closing a Hook from inside a callback of the same registry deadlocks.
type Hook[A any] struct {
	id    string
	link  link[A]
	state atomic.Int32

	cleanup    runtime.Cleanup
	hasCleanup bool
}

func newHook[A any](r *registry[A], s *slot[A]) *Hook[A] {
	h := &Hook[A]{
		id:   s.id,
		link: newLink(r, s),
	}
	h.state.Store(int32(HookActive))

	if s.registered.Load() {
		h.cleanup = runtime.AddCleanup(h, func(l link[A]) { l.collect() }, h.link)
		h.hasCleanup = true
	}
	return h
}

// ID returns the unique subscription identifier.
func (h *Hook[A]) ID() string {
	return h.id
}

// State returns the current lifecycle state.
func (h *Hook[A]) State() HookState {
	return HookState(h.state.Load())
}

// IsAlive reports whether the callback is still registered: the Hook is
// active, the registry has not been closed or collected, and this Hook's
// callback has not been removed by any path.
//
// A leaked Hook no longer tracks its callback and always reports false.
func (h *Hook[A]) IsAlive() bool {
	if h.State() != HookActive {
		return false
	}
	return h.link.alive()
}

// Close removes the callback from its registry. If the registry or the
// callback no longer exists, Close does nothing. Close is idempotent.
func (h *Hook[A]) Close() {
	if !h.state.CompareAndSwap(int32(HookActive), int32(HookClosed)) {
		return
	}
	h.stopCleanup()
	h.link.unhook()
}

// Leak detaches the Hook from lifetime management. The callback keeps being
// invoked until the registry itself is closed or collected.
func (h *Hook[A]) Leak() {
	if !h.state.CompareAndSwap(int32(HookActive), int32(HookLeaked)) {
		return
	}
	h.stopCleanup()
}

func (h *Hook[A]) stopCleanup() {
	if h.hasCleanup {
		h.cleanup.Stop()
	}
}
