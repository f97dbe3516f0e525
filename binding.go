package reactive

// PropertyBinding is a read-only subscription to a Property's changes.
//
// The binding keeps its Property alive but refers to its own callback weakly,
// like a Hook: Close removes the callback, and so does the garbage collector
// once the binding is unreachable.
type PropertyBinding[T any] struct {
	prop *Property[T]
	hook *Hook[T]
}

// Property returns the bound property.
func (b *PropertyBinding[T]) Property() *Property[T] {
	return b.prop
}

// ID returns the unique subscription identifier.
func (b *PropertyBinding[T]) ID() string {
	return b.hook.ID()
}

// Read locks the bound property for reading.
func (b *PropertyBinding[T]) Read() (*ReadGuard[T], error) {
	return b.prop.Read()
}

// Get returns a copy of the bound property's value.
func (b *PropertyBinding[T]) Get() (T, error) {
	return b.prop.Get()
}

// IsAlive reports whether the binding's callback is still registered.
func (b *PropertyBinding[T]) IsAlive() bool {
	return b.hook.IsAlive()
}

// State returns the lifecycle state of the underlying Hook.
func (b *PropertyBinding[T]) State() HookState {
	return b.hook.State()
}

// Leak detaches the binding from lifetime management. The callback stays
// registered until the property is closed or collected.
func (b *PropertyBinding[T]) Leak() {
	b.hook.Leak()
}

// Close removes the binding's callback. Close is idempotent.
func (b *PropertyBinding[T]) Close() {
	b.hook.Close()
}

// ReadWriteBinding is a PropertyBinding that can also write the property.
// Writes made through the binding notify every other callback but never the
// binding's own, which prevents a change handler from feeding back into
// itself.
type ReadWriteBinding[T any] struct {
	PropertyBinding[T]
}

// Write locks the bound property for writing. Unlocking the guard notifies
// every bound callback except this binding's.
func (b *ReadWriteBinding[T]) Write() (*WriteGuard[T], error) {
	return b.prop.write(b.self())
}

// Set replaces the value, notifying every callback except this binding's.
func (b *ReadWriteBinding[T]) Set(value T) error {
	return b.prop.update(func(v *T) { *v = value }, b.self())
}

// Update applies fn to the value, notifying every callback except this
// binding's. A panic in fn is handled as in Property.Update.
func (b *ReadWriteBinding[T]) Update(fn func(*T)) error {
	return b.prop.update(fn, b.self())
}

// self returns the binding's own slot, or nil if it no longer exists, in
// which case there is nothing to exclude.
func (b *ReadWriteBinding[T]) self() *slot[T] {
	return b.hook.link.slot.Value()
}
