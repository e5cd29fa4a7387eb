package runtime

import (
	"context"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/flowbind/errors"
	"github.com/wippyai/flowbind/locator"
	"github.com/wippyai/flowbind/native"
	"github.com/wippyai/flowbind/resource"
)

// Runtime owns one native runtime context and every Module and Value
// created through it.
type Runtime struct {
	_        noCopy
	lib      native.Library
	cell     *cell
	children *resource.UnifiedTable
	reaper   *reaper
	cleanup  goruntime.Cleanup
}

type options struct {
	locator *locator.Locator
	lib     native.Library
}

// Option configures New.
type Option func(*options)

// WithLocator loads the native library through l instead of
// locator.Default().
func WithLocator(l *locator.Locator) Option {
	return func(o *options) {
		o.locator = l
	}
}

// WithLibrary uses an already opened library and skips loading.
func WithLibrary(lib native.Library) Option {
	return func(o *options) {
		o.lib = lib
	}
}

// New loads the native library if needed and creates a runtime context.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	lib := o.lib
	if lib == nil {
		loc := o.locator
		if loc == nil {
			loc = locator.Default()
		}
		var err error
		if lib, err = loc.Load(ctx); err != nil {
			return nil, err
		}
	}

	h := lib.RuntimeNew()
	if h == 0 {
		return nil, errors.RuntimeCreation(lastError(lib, h))
	}

	children := resource.NewTable()
	children.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventCleared && e.Value.(int) > 0 {
			Logger().Debug("released outstanding children", zap.Int("count", e.Value.(int)))
		}
	}))

	q := &reaper{}
	r := &Runtime{
		lib:      lib,
		children: children,
		reaper:   q,
		cell: newCell("runtime", h, func(h native.Handle) {
			q.drain()
			children.Close()
			lib.RuntimeFree(h)
		}),
	}
	r.cleanup = goruntime.AddCleanup(r, reclaim, r.cell)
	return r, nil
}

// Library returns the native library the runtime was created from.
func (r *Runtime) Library() native.Library {
	return r.lib
}

// live drains handles the garbage collector queued and returns the
// context handle. Every entry point that reaches the native context
// goes through it.
func (r *Runtime) live(phase errors.Phase) (native.Handle, error) {
	r.reaper.drain()
	h := r.cell.handle()
	if h == 0 {
		return 0, errors.UseAfterRelease(phase, "runtime")
	}
	return h, nil
}

// Released reports whether Close has run.
func (r *Runtime) Released() bool {
	return r.cell.handle() == 0
}

// Compile compiles source into a module named name. On failure the error
// carries the compiler's diagnostic and no module is returned.
func (r *Runtime) Compile(ctx context.Context, source, name string) (*Module, error) {
	defer goruntime.KeepAlive(r)
	rt, err := r.live(errors.PhaseCompile)
	if err != nil {
		return nil, err
	}

	h := r.lib.ModuleCompile(rt, source, name)
	if h == 0 {
		return nil, errors.Compilation(name, lastError(r.lib, rt))
	}
	return r.newModule(h, name), nil
}

// LoadFile compiles the source file at path. The module is named after
// the file without its extension.
func (r *Runtime) LoadFile(ctx context.Context, path string) (*Module, error) {
	defer goruntime.KeepAlive(r)
	rt, err := r.live(errors.PhaseCompile)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IO(path, err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, errors.IO(path, err)
	}
	if info.IsDir() {
		return nil, errors.IO(path, os.ErrInvalid)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	h := r.lib.ModuleLoadFile(rt, path)
	if h == 0 {
		return nil, errors.Compilation(name, lastError(r.lib, rt))
	}
	return r.newModule(h, name), nil
}

func (r *Runtime) newModule(h native.Handle, name string) *Module {
	m := &Module{
		rt:   r,
		name: name,
		cell: newCell("module", h, r.lib.ModuleFree),
	}
	m.cell.track(r.children, typeModule, r.reaper)
	m.cleanup = goruntime.AddCleanup(m, reclaim, m.cell)
	return m
}

func (r *Runtime) newValue(h native.Handle) *Value {
	v := &Value{
		rt:   r,
		cell: newCell("value", h, r.lib.ValueFree),
	}
	v.cell.track(r.children, typeValue, r.reaper)
	v.cleanup = goruntime.AddCleanup(v, reclaim, v.cell)
	return v
}

func (r *Runtime) makeValue(alloc func(rt native.Handle) native.Handle) (*Value, error) {
	defer goruntime.KeepAlive(r)
	rt, err := r.live(errors.PhaseValue)
	if err != nil {
		return nil, err
	}
	h := alloc(rt)
	if h == 0 {
		return nil, errors.Allocation(errors.PhaseValue, "value")
	}
	return r.newValue(h), nil
}

// NewInt creates an integer value.
func (r *Runtime) NewInt(v int64) (*Value, error) {
	return r.makeValue(func(rt native.Handle) native.Handle {
		return r.lib.ValueNewInt(rt, v)
	})
}

// NewFloat creates a floating point value.
func (r *Runtime) NewFloat(v float64) (*Value, error) {
	return r.makeValue(func(rt native.Handle) native.Handle {
		return r.lib.ValueNewFloat(rt, v)
	})
}

// NewString creates a string value. The native side keeps its own copy.
func (r *Runtime) NewString(v string) (*Value, error) {
	return r.makeValue(func(rt native.Handle) native.Handle {
		return r.lib.ValueNewString(rt, v)
	})
}

// NewBool creates a boolean value.
func (r *Runtime) NewBool(v bool) (*Value, error) {
	return r.makeValue(func(rt native.Handle) native.Handle {
		return r.lib.ValueNewBool(rt, v)
	})
}

// NewNull creates the null value.
func (r *Runtime) NewNull() (*Value, error) {
	return r.makeValue(r.lib.ValueNewNull)
}

// LastError returns the most recent diagnostic the native runtime
// recorded. It is a side channel: the error returned by the failing
// operation already carries the same text.
func (r *Runtime) LastError() (string, bool) {
	defer goruntime.KeepAlive(r)
	rt, err := r.live(errors.PhaseCall)
	if err != nil {
		return "", false
	}
	msg := r.lib.RuntimeError(rt)
	return msg, msg != ""
}

// Outstanding returns how many modules and values created through the
// runtime are still open.
func (r *Runtime) Outstanding() int {
	r.reaper.drain()
	return r.children.Len()
}

// Close releases every outstanding module and value, newest first, and
// then the runtime context. Closing twice is a no-op.
func (r *Runtime) Close(ctx context.Context) error {
	r.reaper.drain()
	if r.cell.release() {
		r.cleanup.Stop()
	}
	return nil
}
