package runtime

import (
	"context"
	goruntime "runtime"

	"github.com/wippyai/flowbind/errors"
	"github.com/wippyai/flowbind/native"
)

// Function is a handle to one function in a module. It is valid while
// the module is open and needs no Close of its own.
type Function struct {
	module *Module
	h      native.Handle
	name   string
}

// Name returns the function's declared name.
func (f *Function) Name() string {
	return f.name
}

// Module returns the module the function belongs to.
func (f *Function) Module() *Module {
	return f.module
}

func (f *Function) live(phase errors.Phase) error {
	if f.module.Released() {
		return errors.New(phase, errors.KindUseAfterRelease).
			Entity("function").
			Name(f.name).
			Detail("module has been released").
			Build()
	}
	return nil
}

// ParamCount returns the number of declared parameters.
func (f *Function) ParamCount() (int, error) {
	defer goruntime.KeepAlive(f)
	if err := f.live(errors.PhaseReflect); err != nil {
		return 0, err
	}
	n := f.module.rt.lib.FunctionParamCount(f.h)
	if n < 0 {
		return 0, errors.NotFound(errors.PhaseReflect, "function", f.name)
	}
	return n, nil
}

// Call invokes the function in runtime rt (nil for the module's own).
func (f *Function) Call(ctx context.Context, rt *Runtime, args ...*Value) (*Value, error) {
	defer goruntime.KeepAlive(args)
	defer goruntime.KeepAlive(f)
	if err := f.live(errors.PhaseCall); err != nil {
		return nil, err
	}
	rt, rth, err := f.module.callRuntime(rt)
	if err != nil {
		return nil, err
	}
	handles, err := argHandles(args)
	if err != nil {
		return nil, err
	}

	lib := f.module.rt.lib
	if err := checkArity(lib, f.h, f.name, len(args)); err != nil {
		return nil, err
	}
	out, code := lib.FunctionCall(rth, f.h, handles)
	return rt.result(out, code, f.name)
}
