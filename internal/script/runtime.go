package script

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"weak"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/reactive/internal/config"
)

// Runtime is a sandboxed Lua interpreter with the reactive module loaded.
//
// IMPORTANT: gopher-lua's LState is not goroutine-safe. A Runtime must be
// driven from a single goroutine, and so must every event, property or
// settings write that can reach a callback registered by a script.
type Runtime struct {
	L *lua.LState

	mu     sync.Mutex
	closed atomic.Bool

	bridge   *Bridge
	settings *config.Settings
	out      io.Writer
	logger   *slog.Logger

	// closers release subscriptions created by scripts. Each one refers
	// to its subscription weakly so that dropping it in Lua still lets the
	// garbage collector unhook it.
	closers []func()
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithOutput sets where print writes. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the logger for script diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSettings exposes settings to scripts as the global "settings".
func WithSettings(s *config.Settings) Option {
	return func(r *Runtime) {
		r.settings = s
	}
}

// NewRuntime creates a sandboxed runtime.
func NewRuntime(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		out:    io.Discard,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	r.bridge = NewBridge(r.L)

	openSafeLibraries(r.L)
	r.installSandbox()
	r.registerTypes()
	r.L.SetGlobal("reactive", r.newModule())
	if r.settings != nil {
		r.L.SetGlobal("settings", r.newSettingsModule())
	}

	return r, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Not opened: io, os, debug, package, channel, coroutine.
}

// installSandbox removes the functions that load code from disk or strings
// and redirects print.
func (r *Runtime) installSandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		r.L.SetGlobal(name, lua.LNil)
	}
	r.L.SetGlobal("print", r.L.NewFunction(r.print))
}

func (r *Runtime) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(r.out, strings.Join(parts, "\t"))
	return 0
}

// Bridge returns the value converter bound to this runtime.
func (r *Runtime) Bridge() *Bridge {
	return r.bridge
}

// DoFile executes a Lua file.
func (r *Runtime) DoFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrRuntimeClosed
	}
	return r.doWithRecovery(func() error {
		return r.L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (r *Runtime) DoString(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrRuntimeClosed
	}
	return r.doWithRecovery(func() error {
		return r.L.DoString(code)
	})
}

// Call calls a global Lua function and returns its results converted to Go.
func (r *Runtime) Call(fn string, args ...any) ([]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return nil, ErrRuntimeClosed
	}

	fnVal, ok := r.L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%q: %w", fn, ErrNotFunction)
	}

	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = r.bridge.ToLuaValue(a)
	}

	top := r.L.GetTop()
	err := r.doWithRecovery(func() error {
		return r.L.CallByParam(lua.P{Fn: fnVal, NRet: lua.MultRet, Protect: true}, largs...)
	})
	if err != nil {
		return nil, err
	}

	n := r.L.GetTop() - top
	results := make([]any, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		results = append(results, r.bridge.ToGoValue(r.L.Get(top+i)))
	}
	if n > 0 {
		r.L.Pop(n)
	}
	return results, nil
}

// GetGlobal returns a global variable value.
func (r *Runtime) GetGlobal(name string) lua.LValue {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return lua.LNil
	}
	return r.L.GetGlobal(name)
}

// doWithRecovery executes a function with panic recovery.
func (r *Runtime) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()
	return fn()
}

// IsClosed returns true if the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	return r.closed.Load()
}

// Close releases every subscription made by scripts and the Lua state.
// Close is idempotent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, c := range r.closers {
		c()
	}
	r.closers = nil
	r.L.Close()
	return nil
}

// closer is any subscription token.
type closer interface {
	Close()
}

// track registers p to be closed with the runtime.
func track[T any, P interface {
	*T
	closer
}](r *Runtime, p P) {
	wp := weak.Make((*T)(p))
	r.closers = append(r.closers, func() {
		if v := wp.Value(); v != nil {
			P(v).Close()
		}
	})
}

// callback wraps a Lua function for use as a Go callback. A Lua error is
// raised as a Go panic so that the notifying registry records it.
func (r *Runtime) callback(name string, fn *lua.LFunction) func(lua.LValue) {
	return func(v lua.LValue) {
		if err := r.invoke(fn, v); err != nil {
			panic(&CallbackError{Callback: name, Err: err})
		}
	}
}

// invoke calls fn with args. Calls after Close are dropped.
func (r *Runtime) invoke(fn *lua.LFunction, args ...lua.LValue) error {
	if r.closed.Load() {
		return nil
	}
	return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
}
