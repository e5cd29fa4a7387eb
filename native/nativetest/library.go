package nativetest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wippyai/flowbind/native"
	"github.com/wippyai/flowbind/native/nativetest/internal/flow"
)

type runtimeObj struct {
	lastError string
}

type moduleObj struct {
	prog  *flow.Program
	name  string
	funcs map[string]native.Handle
}

type functionObj struct {
	module native.Handle
	fn     *flow.Func
}

type valueObj struct {
	runtime native.Handle
	v       flow.Value
}

// Stats counts live native objects and misuse the library observed.
type Stats struct {
	Runtimes  int
	Modules   int
	Values    int
	Functions int
	// DoubleFrees counts frees of handles that were already released.
	DoubleFrees int
	// StaleUses counts calls that passed a released or unknown handle.
	StaleUses int
}

// Library is an in-process implementation of the Flow C API.
// Handles are never reused, so a double free is always detectable.
type Library struct {
	objects map[native.Handle]any
	freed   map[native.Handle]bool
	stats   Stats
	next    native.Handle
	mu      sync.Mutex
	closed  bool
}

var _ native.Library = (*Library)(nil)

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		objects: make(map[native.Handle]any),
		freed:   make(map[native.Handle]bool),
		next:    0x1000,
	}
}

// Stats returns a snapshot of the counters.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Library) alloc(obj any) native.Handle {
	if l.closed {
		return 0
	}
	l.next += 0x10
	h := l.next
	l.objects[h] = obj
	switch obj.(type) {
	case *runtimeObj:
		l.stats.Runtimes++
	case *moduleObj:
		l.stats.Modules++
	case *valueObj:
		l.stats.Values++
	case *functionObj:
		l.stats.Functions++
	}
	return h
}

func (l *Library) release(h native.Handle) (any, bool) {
	if h == 0 {
		return nil, false
	}
	obj, ok := l.objects[h]
	if !ok {
		if l.freed[h] {
			l.stats.DoubleFrees++
		}
		return nil, false
	}
	delete(l.objects, h)
	l.freed[h] = true
	switch obj.(type) {
	case *runtimeObj:
		l.stats.Runtimes--
	case *moduleObj:
		l.stats.Modules--
	case *valueObj:
		l.stats.Values--
	case *functionObj:
		l.stats.Functions--
	}
	return obj, true
}

func lookup[T any](l *Library, h native.Handle) (T, bool) {
	obj, ok := l.objects[h]
	if !ok {
		var zero T
		if h != 0 {
			l.stats.StaleUses++
		}
		return zero, false
	}
	t, ok := obj.(T)
	return t, ok
}

func (l *Library) setError(rt native.Handle, msg string) {
	if r, ok := lookup[*runtimeObj](l, rt); ok {
		r.lastError = msg
	}
}

func (l *Library) RuntimeNew() native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alloc(&runtimeObj{})
}

func (l *Library) RuntimeFree(rt native.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(rt)
}

func (l *Library) RuntimeError(rt native.Handle) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := lookup[*runtimeObj](l, rt)
	if !ok {
		return ""
	}
	return r.lastError
}

func (l *Library) ModuleCompile(rt native.Handle, source, name string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.compile(rt, source, name)
}

func (l *Library) compile(rt native.Handle, source, name string) native.Handle {
	if _, ok := lookup[*runtimeObj](l, rt); !ok {
		return 0
	}
	prog, err := flow.Compile(source)
	if err != nil {
		l.setError(rt, "Compilation failed: "+err.Error())
		return 0
	}
	l.setError(rt, "")
	return l.alloc(&moduleObj{prog: prog, name: name, funcs: make(map[string]native.Handle)})
}

func (l *Library) ModuleLoadFile(rt native.Handle, path string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := lookup[*runtimeObj](l, rt); !ok {
		return 0
	}
	src, err := os.ReadFile(path)
	if err != nil {
		l.setError(rt, "Failed to open file: "+path)
		return 0
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.compile(rt, string(src), stem)
}

// ModuleFree releases a module and every function handle taken from it.
func (l *Library) ModuleFree(m native.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	obj, ok := l.release(m)
	if !ok {
		return
	}
	for _, fn := range obj.(*moduleObj).funcs {
		l.release(fn)
	}
}

func (l *Library) ModuleGetFunction(m native.Handle, name string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	mod, ok := lookup[*moduleObj](l, m)
	if !ok {
		return 0
	}
	if h, ok := mod.funcs[name]; ok {
		return h
	}
	fn, ok := mod.prog.Lookup(name)
	if !ok {
		return 0
	}
	h := l.alloc(&functionObj{module: m, fn: fn})
	mod.funcs[name] = h
	return h
}

func (l *Library) FunctionParamCount(fn native.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := lookup[*functionObj](l, fn)
	if !ok {
		return -1
	}
	return len(f.fn.Params)
}

func (l *Library) FunctionCall(rt, fn native.Handle, args []native.Handle) (native.Handle, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := lookup[*functionObj](l, fn)
	if !ok {
		l.setError(rt, "Invalid function handle")
		return 0, native.ErrInvalidArgs
	}
	mod, ok := lookup[*moduleObj](l, f.module)
	if !ok {
		l.setError(rt, "Invalid function handle")
		return 0, native.ErrInvalidArgs
	}
	return l.call(rt, mod, f.fn.Name, args)
}

func (l *Library) Call(rt, m native.Handle, name string, args []native.Handle) (native.Handle, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	mod, ok := lookup[*moduleObj](l, m)
	if !ok {
		l.setError(rt, "Invalid module handle")
		return 0, native.ErrInvalidArgs
	}
	return l.call(rt, mod, name, args)
}

func (l *Library) call(rt native.Handle, mod *moduleObj, name string, args []native.Handle) (native.Handle, native.Result) {
	if _, ok := lookup[*runtimeObj](l, rt); !ok {
		return 0, native.ErrInvalidArgs
	}

	vals := make([]flow.Value, len(args))
	for i, a := range args {
		v, ok := lookup[*valueObj](l, a)
		if !ok {
			l.setError(rt, "Invalid argument handle")
			return 0, native.ErrInvalidArgs
		}
		vals[i] = v.v
	}

	out, err := mod.prog.Call(name, vals)
	if err != nil {
		l.setError(rt, err.Error())
		switch {
		case errors.Is(err, flow.ErrNotFound):
			return 0, native.ErrNotFound
		case errors.Is(err, flow.ErrArity):
			return 0, native.ErrInvalidArgs
		case errors.Is(err, flow.ErrTypeMismatch):
			return 0, native.ErrTypeMismatch
		}
		return 0, native.ErrRuntime
	}

	l.setError(rt, "")
	return l.alloc(&valueObj{runtime: rt, v: out}), native.OK
}

func (l *Library) ReflectFunctionCount(m native.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	mod, ok := lookup[*moduleObj](l, m)
	if !ok {
		return -1
	}
	return len(mod.prog.Funcs)
}

func (l *Library) ReflectListFunctions(m native.Handle) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	mod, ok := lookup[*moduleObj](l, m)
	if !ok {
		return nil
	}
	names := make([]string, len(mod.prog.Funcs))
	for i, f := range mod.prog.Funcs {
		names[i] = f.Name
	}
	return names
}

func (l *Library) ReflectFunctionInfo(m native.Handle, name string) ([]string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	mod, ok := lookup[*moduleObj](l, m)
	if !ok {
		return nil, false
	}
	f, ok := mod.prog.Lookup(name)
	if !ok {
		return nil, false
	}
	flat := make([]string, 0, 2+2*len(f.Params))
	flat = append(flat, f.Name, f.Return)
	for _, p := range f.Params {
		flat = append(flat, p.Name, p.Type)
	}
	return flat, true
}

func (l *Library) newValue(rt native.Handle, v flow.Value) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := lookup[*runtimeObj](l, rt); !ok {
		return 0
	}
	return l.alloc(&valueObj{runtime: rt, v: v})
}

func (l *Library) ValueNewInt(rt native.Handle, v int64) native.Handle {
	return l.newValue(rt, flow.IntValue(v))
}

func (l *Library) ValueNewFloat(rt native.Handle, v float64) native.Handle {
	return l.newValue(rt, flow.FloatValue(v))
}

func (l *Library) ValueNewString(rt native.Handle, v string) native.Handle {
	return l.newValue(rt, flow.StringValue(v))
}

func (l *Library) ValueNewBool(rt native.Handle, v bool) native.Handle {
	return l.newValue(rt, flow.BoolValue(v))
}

func (l *Library) ValueNewNull(rt native.Handle) native.Handle {
	return l.newValue(rt, flow.NullValue())
}

func (l *Library) ValueFree(v native.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(v)
}

func (l *Library) value(h native.Handle) (flow.Value, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := lookup[*valueObj](l, h)
	if !ok {
		return flow.Value{}, false
	}
	return v.v, true
}

func (l *Library) ValueType(h native.Handle) native.ValueCode {
	v, ok := l.value(h)
	if !ok {
		return native.TypeNull
	}
	return native.ValueCode(v.Kind)
}

func (l *Library) ValueInt(h native.Handle) (int64, native.Result) {
	v, ok := l.value(h)
	if !ok {
		return 0, native.ErrInvalidArgs
	}
	if v.Kind != flow.KindInt {
		return 0, native.ErrTypeMismatch
	}
	return v.I, native.OK
}

func (l *Library) ValueFloat(h native.Handle) (float64, native.Result) {
	v, ok := l.value(h)
	if !ok {
		return 0, native.ErrInvalidArgs
	}
	if v.Kind != flow.KindFloat {
		return 0, native.ErrTypeMismatch
	}
	return v.F, native.OK
}

func (l *Library) ValueString(h native.Handle) (string, bool) {
	v, ok := l.value(h)
	if !ok || v.Kind != flow.KindString {
		return "", false
	}
	return v.S, true
}

func (l *Library) ValueBool(h native.Handle) (bool, native.Result) {
	v, ok := l.value(h)
	if !ok {
		return false, native.ErrInvalidArgs
	}
	if v.Kind != flow.KindBool {
		return false, native.ErrTypeMismatch
	}
	return v.B, native.OK
}

// Close refuses further allocations. Live objects stay visible in Stats.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
