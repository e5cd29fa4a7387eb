package runtime

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"

	"github.com/wippyai/flowbind/errors"
	"github.com/wippyai/flowbind/native"
)

// Module is a compiled Flow source unit. Its functions are fixed at
// compile time; reflection never changes them.
type Module struct {
	_       noCopy
	rt      *Runtime
	cell    *cell
	cleanup goruntime.Cleanup
	name    string
	// owned is set when the module owns a private runtime.
	owned bool
}

// Name returns the name the module was compiled under.
func (m *Module) Name() string {
	return m.name
}

// Runtime returns the runtime that compiled the module.
func (m *Module) Runtime() *Runtime {
	return m.rt
}

func (m *Module) live(phase errors.Phase) (native.Handle, error) {
	m.rt.reaper.drain()
	h := m.cell.handle()
	if h == 0 {
		return 0, errors.UseAfterRelease(phase, "module")
	}
	return h, nil
}

// Released reports whether the module has been closed, either directly or
// by closing its runtime.
func (m *Module) Released() bool {
	return m.cell.handle() == 0
}

// callRuntime resolves the runtime a call runs in. A nil rt means the
// module's own runtime.
func (m *Module) callRuntime(rt *Runtime) (*Runtime, native.Handle, error) {
	if rt == nil {
		rt = m.rt
	}
	if rt.lib != m.rt.lib {
		return nil, 0, errors.InvalidInput(errors.PhaseCall, "runtime belongs to a different library")
	}
	h, err := rt.live(errors.PhaseCall)
	if err != nil {
		return nil, 0, err
	}
	return rt, h, nil
}

// argHandles validates arguments before they cross the boundary.
func argHandles(args []*Value) ([]native.Handle, error) {
	handles := make([]native.Handle, len(args))
	for i, a := range args {
		if a == nil {
			return nil, errors.InvalidInput(errors.PhaseCall, fmt.Sprintf("argument %d is nil", i))
		}
		h := a.cell.handle()
		if h == 0 {
			return nil, errors.New(errors.PhaseCall, errors.KindUseAfterRelease).
				Entity("value").
				Detail("argument %d has been released", i).
				Build()
		}
		handles[i] = h
	}
	return handles, nil
}

func checkArity(lib native.Library, fn native.Handle, name string, got int) error {
	want := lib.FunctionParamCount(fn)
	if want >= 0 && want != got {
		return errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Entity("function").
			Name(name).
			Detail("expects %d argument(s), got %d", want, got).
			Build()
	}
	return nil
}

// Call invokes the named function with args in runtime rt (nil for the
// module's own runtime). The result is owned by that runtime and must be
// closed by the caller.
func (m *Module) Call(ctx context.Context, rt *Runtime, name string, args ...*Value) (*Value, error) {
	defer goruntime.KeepAlive(args)
	defer goruntime.KeepAlive(m)
	mh, err := m.live(errors.PhaseCall)
	if err != nil {
		return nil, err
	}
	rt, rth, err := m.callRuntime(rt)
	if err != nil {
		return nil, err
	}
	handles, err := argHandles(args)
	if err != nil {
		return nil, err
	}

	lib := m.rt.lib
	fn := lib.ModuleGetFunction(mh, name)
	if fn == 0 {
		return nil, errors.NotFound(errors.PhaseCall, "function", name)
	}
	if err := checkArity(lib, fn, name, len(args)); err != nil {
		return nil, err
	}

	out, code := lib.Call(rth, mh, name, handles)
	return rt.result(out, code, name)
}

// result wraps a call's out-parameter.
func (r *Runtime) result(out native.Handle, code native.Result, name string) (*Value, error) {
	if code != native.OK {
		return nil, callError(code, name, lastError(r.lib, r.cell.handle()))
	}
	if out == 0 {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidData).
			Entity("function").
			Name(name).
			Detail("call succeeded without a result value").
			Build()
	}
	return r.newValue(out), nil
}

// Function looks up a declared function. It reports false for unknown
// names and for a released module.
func (m *Module) Function(name string) (*Function, bool) {
	defer goruntime.KeepAlive(m)
	mh, err := m.live(errors.PhaseReflect)
	if err != nil {
		return nil, false
	}
	fn := m.rt.lib.ModuleGetFunction(mh, name)
	if fn == 0 {
		return nil, false
	}
	return &Function{module: m, h: fn, name: name}, true
}

// Count returns the number of declared functions.
func (m *Module) Count() (int, error) {
	defer goruntime.KeepAlive(m)
	mh, err := m.live(errors.PhaseReflect)
	if err != nil {
		return 0, err
	}
	n := m.rt.lib.ReflectFunctionCount(mh)
	if n < 0 {
		return 0, errors.InvalidData(errors.PhaseReflect, fmt.Sprintf("negative function count %d", n))
	}
	return n, nil
}

// List returns the declared function names in declaration order.
func (m *Module) List() ([]string, error) {
	defer goruntime.KeepAlive(m)
	mh, err := m.live(errors.PhaseReflect)
	if err != nil {
		return nil, err
	}
	names := m.rt.lib.ReflectListFunctions(mh)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Info returns the signature of the named function.
func (m *Module) Info(name string) (*FunctionInfo, error) {
	defer goruntime.KeepAlive(m)
	mh, err := m.live(errors.PhaseReflect)
	if err != nil {
		return nil, err
	}
	flat, ok := m.rt.lib.ReflectFunctionInfo(mh, name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseReflect, "function", name)
	}
	return decodeInfo(flat)
}

// Functions returns every signature in declaration order.
func (m *Module) Functions() ([]*FunctionInfo, error) {
	names, err := m.List()
	if err != nil {
		return nil, err
	}
	infos := make([]*FunctionInfo, 0, len(names))
	for _, name := range names {
		info, err := m.Info(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Inspect renders a human-readable listing of the module's functions.
func (m *Module) Inspect() (string, error) {
	infos, err := m.Functions()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "Module contains no functions", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Module contains %d function(s):\n\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(&b, "  %s\n", info.Signature())
	}
	return b.String(), nil
}

// Close releases the module. Function handles taken from it become
// invalid. A module returned by the package-level Compile or LoadFile
// also closes its private runtime. Closing twice is a no-op.
func (m *Module) Close(ctx context.Context) error {
	if m.cell.release() {
		m.cleanup.Stop()
	}
	if m.owned {
		return m.rt.Close(ctx)
	}
	return nil
}

// Compile compiles source in a private runtime owned by the returned
// module. Closing the module closes that runtime and every value
// created in it.
func Compile(ctx context.Context, source, name string, opts ...Option) (*Module, error) {
	return private(ctx, opts, func(rt *Runtime) (*Module, error) {
		return rt.Compile(ctx, source, name)
	})
}

// LoadFile is Compile for a source file.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Module, error) {
	return private(ctx, opts, func(rt *Runtime) (*Module, error) {
		return rt.LoadFile(ctx, path)
	})
}

func private(ctx context.Context, opts []Option, build func(*Runtime) (*Module, error)) (*Module, error) {
	rt, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	m, err := build(rt)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	m.owned = true
	return m, nil
}
