// Package reactive provides thread-safe reactive primitives: Event, a
// multi-subscriber notification registry, and Property, an observable value
// whose committed writes notify subscribers.
//
// # Subscriptions
//
// Subscribing returns a token (Hook, PropertyBinding or ReadWriteBinding)
// that governs the lifetime of the callback:
//
//	ev := reactive.NewEvent[string]()
//	hook := ev.Hook(func(msg string) {
//	    fmt.Println("received", msg)
//	})
//	defer hook.Close()
//
//	_ = ev.Invoke("hello")
//
// Tokens refer to their registry and to their own callback weakly. A token
// never keeps an Event or Property alive, and closing a token whose registry
// is already gone is a no-op. A token that becomes unreachable without being
// closed removes its callback when the garbage collector reclaims it; Close
// makes the removal deterministic. Leak detaches a token so that its
// callback lives as long as the registry does.
//
// The registry holds the only reference able to call a callback. Tokens
// only use their callback's identity, for removal and for self-exclusion.
//
// # Properties
//
// A Property guards its value and its subscriber list with a single
// reader/writer lock:
//
//	count := reactive.NewProperty(0)
//	b := count.BindChanged(func(v int) {
//	    fmt.Println("count is now", v)
//	})
//	defer b.Close()
//
//	g, err := count.Write()
//	if err != nil {
//	    return err
//	}
//	g.Set(5)
//	if err := g.Unlock(); err != nil { // notifies: "count is now 5"
//	    return err
//	}
//
// Every committed write guard issues exactly one notification cycle. A
// ReadWriteBinding writes without notifying its own callback, which lets two
// components keep each other in sync without feedback loops:
//
//	a := prop.BindMut(func(v string) { /* changes made by others */ })
//	_ = a.Set("new") // every other binding is notified, a is not
//
// # Ordering and Concurrency
//
// Callbacks run synchronously, in registration order, on the goroutine that
// invokes the event or commits the write. The lock is held for the whole
// cycle, so two cycles on the same registry never interleave. No ordering is
// defined between different registries.
//
// A callback must not take the lock of the registry that is calling it: it
// must not invoke or hook the same Event, read or write the same Property,
// or close a token belonging to that registry. Doing so deadlocks. This is a
// caller contract and is not detected.
//
// # Panics and Poisoning
//
// A panic raised by a callback, by the function given to Update, or by code
// holding a write guard released with a deferred Unlock stops the cycle
// and is recovered into a *PanicError. A guard panic is re-raised after
// the lock is released. The
// registry is then poisoned: Invoke, Read, Write, Get, Set and Update return
// a *PoisonError until ClearPoison is called. Subscribing, closing and
// leaking tokens keep working on a poisoned registry.
package reactive
