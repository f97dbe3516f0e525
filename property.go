package reactive

// Property is a value guarded by a reader/writer lock together with the list
// of callbacks notified when the value is written.
//
// Readers may run concurrently with each other but never with a writer.
// Committing a write guard notifies every bound callback with the new value
// while the write lock is still held, so a callback must not read or write
// the same Property (or close one of its bindings) without deadlocking.
//
// A Property must be created with NewProperty.
type Property[T any] struct {
	reg   *registry[T]
	value T // guarded by reg.mu
}

// NewProperty creates a property holding value.
func NewProperty[T any](value T, opts ...Option) *Property[T] {
	return &Property[T]{
		reg:   newRegistry[T](newConfig(opts)),
		value: value,
	}
}

// Name returns the name set with WithName.
func (p *Property[T]) Name() string {
	return p.reg.name
}

// Read locks the property for reading. The returned guard must be unlocked.
// Reading never notifies.
func (p *Property[T]) Read() (*ReadGuard[T], error) {
	p.reg.mu.RLock()
	if err := p.reg.check(); err != nil {
		p.reg.mu.RUnlock()
		return nil, err
	}
	return &ReadGuard[T]{prop: p}, nil
}

// Write locks the property for writing. Unlocking the returned guard
// notifies every bound callback exactly once.
//
// Release the guard with defer g.Unlock(). If a panic unwinds through that
// deferred Unlock, the property is poisoned, nobody is notified and the
// panic continues. A guard that is never unlocked blocks every other
// access forever.
func (p *Property[T]) Write() (*WriteGuard[T], error) {
	return p.write(nil)
}

func (p *Property[T]) write(exclude *slot[T]) (*WriteGuard[T], error) {
	p.reg.mu.Lock()
	if err := p.reg.check(); err != nil {
		p.reg.mu.Unlock()
		return nil, err
	}
	return &WriteGuard[T]{prop: p, exclude: exclude}, nil
}

// Get returns a copy of the current value.
func (p *Property[T]) Get() (T, error) {
	g, err := p.Read()
	if err != nil {
		var zero T
		return zero, err
	}
	defer g.Unlock()
	return g.Get(), nil
}

// Set replaces the value and notifies every bound callback.
func (p *Property[T]) Set(value T) error {
	return p.update(func(v *T) { *v = value }, nil)
}

// Update applies fn to the value under the write lock and notifies every
// bound callback. If fn panics the property is poisoned, no callback runs
// and the panic is returned as a *PanicError.
func (p *Property[T]) Update(fn func(*T)) error {
	return p.update(fn, nil)
}

func (p *Property[T]) update(fn func(*T), exclude *slot[T]) (err error) {
	g, err := p.write(exclude)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if done {
			return
		}
		g.released = true
		defer p.reg.mu.Unlock()

		if r := recover(); r != nil {
			err = p.reg.poisonWriter(r)
		}
	}()

	fn(g.Ptr())
	done = true
	return g.Unlock()
}

// Hook registers fn on the property's change notification and returns a
// plain Hook for it.
func (p *Property[T]) Hook(fn func(T)) *Hook[T] {
	if fn == nil {
		panic("reactive: nil callback")
	}
	s := p.reg.add(fn)
	return newHook(p.reg, s)
}

// BindChanged registers fn to receive every committed value and returns a
// read-only binding controlling the registration.
func (p *Property[T]) BindChanged(fn func(T)) *PropertyBinding[T] {
	return &PropertyBinding[T]{prop: p, hook: p.Hook(fn)}
}

// Observe calls fn with the current value, then binds it to every value
// committed afterwards. Both steps happen under the write lock, so fn never
// misses or repeats a write. If fn panics on that first call the panic
// propagates and nothing is bound.
//
// On a poisoned property fn is bound without the first call and the
// poison error is returned along with the binding.
func (p *Property[T]) Observe(fn func(T)) (*PropertyBinding[T], error) {
	if fn == nil {
		panic("reactive: nil callback")
	}

	s, err := func() (*slot[T], error) {
		p.reg.mu.Lock()
		defer p.reg.mu.Unlock()

		err := p.reg.check()
		if err == nil {
			fn(p.value)
		}
		return p.reg.addLocked(fn), err
	}()
	return &PropertyBinding[T]{prop: p, hook: newHook(p.reg, s)}, err
}

// BindMut registers fn like BindChanged and returns a binding that can also
// write the property without fn being called for its own writes.
func (p *Property[T]) BindMut(fn func(T)) *ReadWriteBinding[T] {
	return &ReadWriteBinding[T]{PropertyBinding: PropertyBinding[T]{prop: p, hook: p.Hook(fn)}}
}

// Len returns the number of bound callbacks.
func (p *Property[T]) Len() int {
	return int(p.reg.subscribers.Load())
}

// Close removes every bound callback. The value stays readable and
// writable; writes simply notify nobody. Close is idempotent.
func (p *Property[T]) Close() {
	p.reg.close()
}

// IsPoisoned reports whether a callback or an Update function panicked
// while the write lock was held.
func (p *Property[T]) IsPoisoned() bool {
	return p.reg.poison.Load() != nil
}

// ClearPoison clears the poisoned state.
func (p *Property[T]) ClearPoison() {
	p.reg.clearPoison()
}

// Stats returns activity statistics.
func (p *Property[T]) Stats() Stats {
	return p.reg.stats()
}
