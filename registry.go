package reactive

import (
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/dshills/reactive/internal/dispatch"
	"github.com/google/uuid"
)

// slot is one registered callback. The registry holds the only strong
// reference; subscription tokens refer to it weakly and only use it as an
// identity for removal and self-exclusion.
type slot[A any] struct {
	id         string
	fn         func(A)
	registered atomic.Bool
}

// registry is the subscriber list shared by Event and Property.
// slots and the value of an owning Property are guarded by mu.
type registry[A any] struct {
	mu    sync.RWMutex
	slots []*slot[A]

	closed atomic.Bool
	poison atomic.Pointer[PanicError]

	name     string
	logger   *slog.Logger
	executor *dispatch.Executor

	invocations atomic.Uint64
	subscribers atomic.Int64
}

func newRegistry[A any](cfg config) *registry[A] {
	logger := cfg.logger
	name := cfg.name
	return &registry[A]{
		name:   name,
		logger: logger,
		executor: dispatch.NewExecutor(dispatch.WithPanicHandler(func(_ any, stack []byte) {
			logger.Debug("reactive: callback stack", "registry", name, "stack", string(stack))
		})),
	}
}

// add appends fn to the end of the list. A closed registry returns a slot
// that was never registered.
func (r *registry[A]) add(fn func(A)) *slot[A] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(fn)
}

// addLocked is add for a caller that already holds mu exclusively.
func (r *registry[A]) addLocked(fn func(A)) *slot[A] {
	s := &slot[A]{id: uuid.NewString(), fn: fn}
	if r.closed.Load() {
		return s
	}
	s.registered.Store(true)
	r.slots = append(r.slots, s)
	r.subscribers.Add(1)
	return s
}

// removeLocked removes s by identity. Removing a slot that is no longer
// registered is a no-op.
func (r *registry[A]) removeLocked(s *slot[A]) bool {
	i := slices.Index(r.slots, s)
	if i < 0 {
		return false
	}
	r.slots = slices.Delete(r.slots, i, i+1)
	s.registered.Store(false)
	r.subscribers.Add(-1)
	return true
}

// invokeLocked calls every slot in registration order except exclude.
// The caller must hold mu exclusively. A panicking callback ends the cycle
// and poisons the registry.
func (r *registry[A]) invokeLocked(args A, exclude *slot[A]) error {
	r.invocations.Add(1)

	for _, s := range r.slots {
		if s == exclude {
			continue
		}

		result := r.executor.Run(func() { s.fn(args) })
		if result.Panicked {
			perr := &PanicError{
				Name:   r.name,
				HookID: s.id,
				Value:  result.PanicValue,
				Stack:  string(result.PanicStack),
			}
			r.poison.Store(perr)
			r.logger.Error("reactive: callback panicked",
				"registry", r.name,
				"hook", s.id,
				"panic", result.PanicValue,
			)
			return perr
		}
	}
	return nil
}

// poisonWriter poisons the registry after a panic raised by the goroutine
// holding the write lock outside of any callback.
func (r *registry[A]) poisonWriter(value any) *PanicError {
	perr := &PanicError{Name: r.name, Value: value, Stack: string(debug.Stack())}
	r.poison.Store(perr)
	r.logger.Error("reactive: writer panicked", "registry", r.name, "panic", value)
	return perr
}

// check returns a *PoisonError if the registry is poisoned.
func (r *registry[A]) check() error {
	if p := r.poison.Load(); p != nil {
		return &PoisonError{Name: r.name, Cause: p}
	}
	return nil
}

// close drops every slot. Later registrations are inert.
func (r *registry[A]) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Swap(true) {
		return
	}
	for _, s := range r.slots {
		s.registered.Store(false)
	}
	r.subscribers.Add(-int64(len(r.slots)))
	r.slots = nil
}

func (r *registry[A]) clearPoison() {
	r.poison.Store(nil)
}

func (r *registry[A]) stats() Stats {
	es := r.executor.Stats()
	return Stats{
		Name:         r.name,
		Invocations:  r.invocations.Load(),
		Callbacks:    es.Runs,
		Panics:       es.Panics,
		CallbackTime: es.TotalDuration,
		Subscribers:  int(r.subscribers.Load()),
		Poisoned:     r.poison.Load() != nil,
		Closed:       r.closed.Load(),
	}
}

// link is a pair of non-owning references from a subscription token back to
// its registry and slot.
type link[A any] struct {
	reg  weak.Pointer[registry[A]]
	slot weak.Pointer[slot[A]]
}

func newLink[A any](r *registry[A], s *slot[A]) link[A] {
	return link[A]{reg: weak.Make(r), slot: weak.Make(s)}
}

// alive reports whether the registry still exists and still holds the slot.
func (l link[A]) alive() bool {
	r := l.reg.Value()
	if r == nil || r.closed.Load() {
		return false
	}
	s := l.slot.Value()
	return s != nil && s.registered.Load()
}

// unhook removes the slot if both the registry and the slot still exist.
// Poison is ignored: cleanup always proceeds.
func (l link[A]) unhook() bool {
	r := l.reg.Value()
	if r == nil {
		return false
	}
	s := l.slot.Value()
	if s == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(s)
}

// collect is run by the garbage collector for tokens that were dropped
// without Close or Leak.
func (l link[A]) collect() {
	if !l.unhook() {
		return
	}
	if r := l.reg.Value(); r != nil {
		r.logger.Debug("reactive: removed unreachable subscription", "registry", r.name)
	}
}
