package reactive

// ReadGuard holds a Property's read lock.
type ReadGuard[T any] struct {
	prop     *Property[T]
	released bool
}

// Get returns the current value.
func (g *ReadGuard[T]) Get() T {
	g.mustHold()
	return g.prop.value
}

// Unlock releases the read lock. Unlock is idempotent.
func (g *ReadGuard[T]) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.prop.reg.mu.RUnlock()
}

func (g *ReadGuard[T]) mustHold() {
	if g.released {
		panic("reactive: use of released read guard")
	}
}

// WriteGuard holds a Property's write lock. Unlock commits the write.
type WriteGuard[T any] struct {
	prop     *Property[T]
	exclude  *slot[T]
	released bool
}

// Get returns the current value.
func (g *WriteGuard[T]) Get() T {
	g.mustHold()
	return g.prop.value
}

// Ptr returns a pointer to the value for in-place mutation.
// The pointer must not be used after Unlock.
func (g *WriteGuard[T]) Ptr() *T {
	g.mustHold()
	return &g.prop.value
}

// Set replaces the value.
func (g *WriteGuard[T]) Set(value T) {
	g.mustHold()
	g.prop.value = value
}

// Unlock notifies the bound callbacks with the value as it is now, then
// releases the write lock. A guard obtained from a ReadWriteBinding skips
// that binding's own callback.
//
// Unlock returns a *PanicError if a callback panicked; the property is then
// poisoned. Calling Unlock again does nothing.
//
// When Unlock is deferred and the writer panics, the write is not
// committed: the property is poisoned, the lock is released without
// notifying and the panic is re-raised.
func (g *WriteGuard[T]) Unlock() error {
	if g.released {
		return nil
	}
	g.released = true

	if r := recover(); r != nil {
		g.prop.reg.poisonWriter(r)
		g.prop.reg.mu.Unlock()
		panic(r)
	}

	defer g.prop.reg.mu.Unlock()
	return g.prop.reg.invokeLocked(g.prop.value, g.exclude)
}

func (g *WriteGuard[T]) mustHold() {
	if g.released {
		panic("reactive: use of released write guard")
	}
}
