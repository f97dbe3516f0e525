package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/reactive/internal/config"
)

// newSettingsModule builds the global "settings" table over r.settings.
//
//	settings.get(path)          -> value or nil
//	settings.set(path, value)
//	settings.delete(path)
//	settings.watch(path, fn)    -> token; fn(new, old, kind)
func (r *Runtime) newSettingsModule() *lua.LTable {
	return r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"get":    r.settingsGet,
		"set":    r.settingsSet,
		"delete": r.settingsDelete,
		"watch":  r.settingsWatch,
	})
}

func (r *Runtime) settingsGet(L *lua.LState) int {
	res, err := r.settings.Get(L.CheckString(1))
	if err != nil {
		raise(L, err)
	}
	L.Push(r.bridge.FromResult(res))
	return 1
}

func (r *Runtime) settingsSet(L *lua.LState) int {
	path := L.CheckString(1)
	if err := r.settings.Set(path, r.bridge.ToGoValue(L.CheckAny(2))); err != nil {
		raise(L, err)
	}
	return 0
}

func (r *Runtime) settingsDelete(L *lua.LState) int {
	if err := r.settings.Delete(L.CheckString(1)); err != nil {
		raise(L, err)
	}
	return 0
}

// settingsWatch registers a path watcher. Unlike event hooks, a failing
// watcher is logged rather than poisoning the settings, which are shared
// with the rest of the application.
func (r *Runtime) settingsWatch(L *lua.LState) int {
	path := L.CheckString(1)
	fn := L.CheckFunction(2)

	b := r.settings.Watch(path, func(c config.Change) {
		err := r.invoke(fn, r.bridge.FromResult(c.New), r.bridge.FromResult(c.Old), lua.LString(c.Type.String()))
		if err != nil {
			r.logger.Error("settings watcher failed", "path", path, "error", err)
		}
	})
	track(r, b)
	L.Push(r.wrap(tokenTypeName, b))
	return 1
}
