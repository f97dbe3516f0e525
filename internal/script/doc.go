// Package script embeds a sandboxed Lua runtime that can create and observe
// reactive events and properties.
//
// # Runtime
//
//	rt, err := script.NewRuntime(
//	    script.WithOutput(os.Stdout),
//	    script.WithSettings(settings),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	if err := rt.DoFile("hooks.lua"); err != nil {
//	    log.Fatal(err)
//	}
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load, loadstring and require are removed, and print writes to
// the configured output.
//
// # The reactive module
//
//	local ev = reactive.event("clicks")
//	local h = ev:hook(function(v) print("clicked", v) end)
//	ev:invoke(1)
//	h:close()
//
//	local p = reactive.property(5, "count")
//	local watcher = p:bind(function(v) print("now", v) end)
//	local writer = p:bind_mut(function(v) end)
//	writer:set(7)    -- notifies watcher, not writer
//	p:update(function(v) return v + 1 end)
//
// Tokens returned by hook, bind and bind_mut answer id(), alive(), state(),
// close() and leak(). A token dropped by the script is unhooked once the
// garbage collector reclaims it. Closing the runtime closes every
// subscription the script made.
//
// A Lua error inside a hook or binding poisons the event or property, and
// the invoke or set that triggered it raises that error. A poisoned object
// raises on every further use until clear_poison() is called.
//
// The same deadlock contract as in Go applies: a callback must not invoke or
// write the object that is notifying it, and an update function must not
// touch its own property.
//
// # Settings
//
// With WithSettings, the global settings table exposes get, set, delete and
// watch over a config.Settings. watch callbacks receive the new value, the
// old value and the kind of change ("set", "delete" or "reload"). A watch
// callback runs while the settings are locked and must not call
// settings.set or settings.delete.
package script
