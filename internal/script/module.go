package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/reactive"
)

// Lua type names for userdata metatables.
const (
	eventTypeName    = "reactive.event"
	propertyTypeName = "reactive.property"
	tokenTypeName    = "reactive.token"
)

type (
	luaEvent    = reactive.Event[lua.LValue]
	luaProperty = reactive.Property[lua.LValue]
)

// token is the common surface of hooks and bindings.
type token interface {
	ID() string
	IsAlive() bool
	State() reactive.HookState
	Close()
	Leak()
}

func (r *Runtime) registerTypes() {
	r.newType(eventTypeName, map[string]lua.LGFunction{
		"hook":         r.eventHook,
		"invoke":       r.eventInvoke,
		"len":          r.eventLen,
		"close":        r.eventClose,
		"poisoned":     r.eventPoisoned,
		"clear_poison": r.eventClearPoison,
	})
	r.newType(propertyTypeName, map[string]lua.LGFunction{
		"get":          r.propertyGet,
		"set":          r.propertySet,
		"update":       r.propertyUpdate,
		"bind":         r.propertyBind,
		"bind_mut":     r.propertyBindMut,
		"len":          r.propertyLen,
		"close":        r.propertyClose,
		"poisoned":     r.propertyPoisoned,
		"clear_poison": r.propertyClearPoison,
	})
	r.newType(tokenTypeName, map[string]lua.LGFunction{
		"id":    r.tokenID,
		"alive": r.tokenAlive,
		"state": r.tokenState,
		"close": r.tokenClose,
		"leak":  r.tokenLeak,
		"get":   r.tokenGet,
		"set":   r.tokenSet,
	})
}

func (r *Runtime) newType(name string, methods map[string]lua.LGFunction) {
	mt := r.L.NewTypeMetatable(name)
	r.L.SetField(mt, "__index", r.L.SetFuncs(r.L.NewTable(), methods))
	r.L.SetField(mt, "__tostring", r.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(name))
		return 1
	}))
}

func (r *Runtime) wrap(typeName string, v any) *lua.LUserData {
	ud := r.L.NewUserData()
	ud.Value = v
	r.L.SetMetatable(ud, r.L.GetTypeMetatable(typeName))
	return ud
}

// newModule builds the global "reactive" table.
func (r *Runtime) newModule() *lua.LTable {
	return r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"event":    r.newEvent,
		"property": r.newProperty,
	})
}

// reactive.event([name])
func (r *Runtime) newEvent(L *lua.LState) int {
	e := reactive.NewEvent[lua.LValue](
		reactive.WithName(L.OptString(1, "lua.event")),
		reactive.WithLogger(r.logger),
	)
	track(r, e)
	L.Push(r.wrap(eventTypeName, e))
	return 1
}

// reactive.property(value[, name])
func (r *Runtime) newProperty(L *lua.LState) int {
	p := reactive.NewProperty(L.Get(1),
		reactive.WithName(L.OptString(2, "lua.property")),
		reactive.WithLogger(r.logger),
	)
	track(r, p)
	L.Push(r.wrap(propertyTypeName, p))
	return 1
}

func checkEvent(L *lua.LState) *luaEvent {
	if e, ok := L.CheckUserData(1).Value.(*luaEvent); ok {
		return e
	}
	L.ArgError(1, "reactive event expected")
	return nil
}

func checkProperty(L *lua.LState) *luaProperty {
	if p, ok := L.CheckUserData(1).Value.(*luaProperty); ok {
		return p
	}
	L.ArgError(1, "reactive property expected")
	return nil
}

func checkToken(L *lua.LState) token {
	if t, ok := L.CheckUserData(1).Value.(token); ok {
		return t
	}
	L.ArgError(1, "reactive token expected")
	return nil
}

// raise converts err into a Lua error. It does not return.
func raise(L *lua.LState, err error) {
	L.RaiseError("%s", err.Error())
}

func (r *Runtime) eventHook(L *lua.LState) int {
	e := checkEvent(L)
	fn := L.CheckFunction(2)

	h := e.Hook(r.callback(e.Name(), fn))
	track(r, h)
	L.Push(r.wrap(tokenTypeName, h))
	return 1
}

func (r *Runtime) eventInvoke(L *lua.LState) int {
	e := checkEvent(L)
	if err := e.Invoke(L.Get(2)); err != nil {
		raise(L, err)
	}
	return 0
}

func (r *Runtime) eventLen(L *lua.LState) int {
	L.Push(lua.LNumber(checkEvent(L).Len()))
	return 1
}

func (r *Runtime) eventClose(L *lua.LState) int {
	checkEvent(L).Close()
	return 0
}

func (r *Runtime) eventPoisoned(L *lua.LState) int {
	L.Push(lua.LBool(checkEvent(L).IsPoisoned()))
	return 1
}

func (r *Runtime) eventClearPoison(L *lua.LState) int {
	checkEvent(L).ClearPoison()
	return 0
}

func (r *Runtime) propertyGet(L *lua.LState) int {
	v, err := checkProperty(L).Get()
	if err != nil {
		raise(L, err)
	}
	L.Push(v)
	return 1
}

func (r *Runtime) propertySet(L *lua.LState) int {
	if err := checkProperty(L).Set(L.Get(2)); err != nil {
		raise(L, err)
	}
	return 0
}

// p:update(fn) replaces the value with fn(value).
func (r *Runtime) propertyUpdate(L *lua.LState) int {
	p := checkProperty(L)
	fn := L.CheckFunction(2)

	err := p.Update(func(v *lua.LValue) {
		*v = r.apply(fn, *v)
	})
	if err != nil {
		raise(L, err)
	}
	return 0
}

// apply calls fn(v) and returns its first result, panicking on a Lua error.
func (r *Runtime) apply(fn *lua.LFunction, v lua.LValue) lua.LValue {
	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, v); err != nil {
		panic(&CallbackError{Callback: "update", Err: err})
	}
	ret := r.L.Get(-1)
	r.L.Pop(1)
	return ret
}

func (r *Runtime) propertyBind(L *lua.LState) int {
	p := checkProperty(L)
	fn := L.CheckFunction(2)

	b := p.BindChanged(r.callback(p.Name(), fn))
	track(r, b)
	L.Push(r.wrap(tokenTypeName, b))
	return 1
}

func (r *Runtime) propertyBindMut(L *lua.LState) int {
	p := checkProperty(L)
	fn := L.CheckFunction(2)

	b := p.BindMut(r.callback(p.Name(), fn))
	track(r, b)
	L.Push(r.wrap(tokenTypeName, b))
	return 1
}

func (r *Runtime) propertyLen(L *lua.LState) int {
	L.Push(lua.LNumber(checkProperty(L).Len()))
	return 1
}

func (r *Runtime) propertyClose(L *lua.LState) int {
	checkProperty(L).Close()
	return 0
}

func (r *Runtime) propertyPoisoned(L *lua.LState) int {
	L.Push(lua.LBool(checkProperty(L).IsPoisoned()))
	return 1
}

func (r *Runtime) propertyClearPoison(L *lua.LState) int {
	checkProperty(L).ClearPoison()
	return 0
}

func (r *Runtime) tokenID(L *lua.LState) int {
	L.Push(lua.LString(checkToken(L).ID()))
	return 1
}

func (r *Runtime) tokenAlive(L *lua.LState) int {
	L.Push(lua.LBool(checkToken(L).IsAlive()))
	return 1
}

func (r *Runtime) tokenState(L *lua.LState) int {
	L.Push(lua.LString(checkToken(L).State().String()))
	return 1
}

func (r *Runtime) tokenClose(L *lua.LState) int {
	checkToken(L).Close()
	return 0
}

func (r *Runtime) tokenLeak(L *lua.LState) int {
	checkToken(L).Leak()
	return 0
}

// b:get() on a binding returns the bound property's value.
func (r *Runtime) tokenGet(L *lua.LState) int {
	var (
		v   lua.LValue
		err error
	)
	switch b := checkToken(L).(type) {
	case *reactive.PropertyBinding[lua.LValue]:
		v, err = b.Get()
	case *reactive.ReadWriteBinding[lua.LValue]:
		v, err = b.Get()
	default:
		L.ArgError(1, "binding expected")
	}
	if err != nil {
		raise(L, err)
	}
	L.Push(v)
	return 1
}

// b:set(v) on a read-write binding writes without notifying b itself.
func (r *Runtime) tokenSet(L *lua.LState) int {
	b, ok := checkToken(L).(*reactive.ReadWriteBinding[lua.LValue])
	if !ok {
		L.ArgError(1, "read-write binding expected")
	}
	if err := b.Set(L.Get(2)); err != nil {
		raise(L, err)
	}
	return 0
}
