package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

// Module exposes a Go-backed global table to scripts.
type Module interface {
	Name() string
	Register(L *lua.LState) error
}

// Runtime wraps one Lua state. It is not safe for concurrent use.
type Runtime struct {
	state      *lua.LState
	secureMode bool
}

type RuntimeOption func(*Runtime)

func WithModuleDir(dir string) RuntimeOption {
	return func(r *Runtime) {
		if dir != "" {
			setupRequire(r.state, dir)
		}
	}
}

func WithSecureMode(secure bool) RuntimeOption {
	return func(r *Runtime) {
		r.secureMode = secure
	}
}

func NewRuntime(options ...RuntimeOption) *Runtime {
	L := lua.NewState()
	luajson.Preload(L)

	runtime := &Runtime{
		state:      L,
		secureMode: true,
	}

	for _, opt := range options {
		opt(runtime)
	}

	if runtime.secureMode {
		runtime.setupSecureState()
	}

	return runtime
}

func (r *Runtime) setupSecureState() {
	r.state.SetGlobal("os", lua.LNil)
	r.state.SetGlobal("io", lua.LNil)
	r.state.SetGlobal("debug", lua.LNil)
	r.state.SetGlobal("dofile", lua.LNil)
	r.state.SetGlobal("loadfile", lua.LNil)
}

func (r *Runtime) Register(module Module) error {
	if err := module.Register(r.state); err != nil {
		return fmt.Errorf("failed to register module %s: %w", module.Name(), err)
	}
	return nil
}

func (r *Runtime) LoadScript(scriptContent string) error {
	if err := r.state.DoString(scriptContent); err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	return nil
}

func (r *Runtime) HasFunction(name string) bool {
	_, ok := r.state.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Call invokes a global function and returns its results as Go values. The
// call is aborted with an error once ctx is done.
func (r *Runtime) Call(ctx context.Context, functionName string, args ...any) ([]any, error) {
	fn, ok := r.state.GetGlobal(functionName).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("function %s not found", functionName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.state.SetContext(ctx)
	defer r.state.RemoveContext()

	top := r.state.GetTop()
	r.state.Push(fn)
	for _, arg := range args {
		r.state.Push(ToLuaValue(r.state, arg))
	}

	if err := r.state.PCall(len(args), lua.MultRet, nil); err != nil {
		r.state.SetTop(top)
		return nil, fmt.Errorf("lua execution error: %w", err)
	}

	numResults := r.state.GetTop() - top
	results := make([]any, numResults)
	for i := 0; i < numResults; i++ {
		results[i] = ToGoValue(r.state.Get(top + i + 1))
	}
	r.state.SetTop(top)

	return results, nil
}

func (r *Runtime) Close() error {
	if r.state != nil {
		r.state.Close()
	}
	return nil
}
