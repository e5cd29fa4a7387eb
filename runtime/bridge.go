package runtime

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/flowbind/errors"
	"github.com/wippyai/flowbind/native"
	"github.com/wippyai/flowbind/resource"
)

// Resource type IDs in a runtime's ownership table.
const (
	typeModule uint32 = iota + 1
	typeValue
)

// noCopy flags copies of handle owners under go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// cell owns one native handle. The wrapper, its GC cleanup and the
// owner's table all share the cell, and whichever releases it first runs
// the native free. A cell never points back at its wrapper so the
// wrapper stays collectable.
type cell struct {
	free     func(native.Handle)
	table    *resource.UnifiedTable
	reaper   *reaper
	entity   string
	h        native.Handle
	slot     resource.Handle
	released atomic.Bool
}

func newCell(entity string, h native.Handle, free func(native.Handle)) *cell {
	return &cell{entity: entity, h: h, free: free}
}

// handle returns the native handle, or 0 once released.
func (c *cell) handle() native.Handle {
	if c.released.Load() {
		return 0
	}
	return c.h
}

// track registers the cell in an owner's table. Cells the garbage
// collector finds unclosed are queued on q instead of freed in place.
func (c *cell) track(table *resource.UnifiedTable, typeID uint32, q *reaper) {
	c.table = table
	c.reaper = q
	c.slot = table.Insert(typeID, c)
}

// release frees the handle and forgets it in the owner's table. It
// reports whether this call did the release.
func (c *cell) release() bool {
	if !c.released.CompareAndSwap(false, true) {
		return false
	}
	if c.table != nil && c.slot != 0 {
		if v, ok := c.table.Get(c.slot); ok && v == c {
			c.table.Remove(c.slot)
		}
	}
	c.free(c.h)
	return true
}

// Drop is called by the owner's table when the owner is released first.
func (c *cell) Drop() {
	if c.released.CompareAndSwap(false, true) {
		c.free(c.h)
	}
}

// reclaim is the GC cleanup for a wrapper that was never closed. A
// runtime context is freed here; its children go through the runtime's
// reaper so the free happens on the goroutine that owns the context.
func reclaim(c *cell) {
	if c.reaper != nil {
		c.reaper.push(c)
		return
	}
	if c.release() {
		leaked(c)
	}
}

func leaked(c *cell) {
	Logger().Warn("native handle released by garbage collector; missing Close",
		zap.String("entity", c.entity),
		zap.Uint64("handle", uint64(c.h)))
}

// reaper holds cells whose wrappers were collected without Close. The
// owning runtime drains it on its next entry point.
type reaper struct {
	mu      sync.Mutex
	pending []*cell
}

func (q *reaper) push(c *cell) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

func (q *reaper) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// drain releases every queued cell and returns how many it freed.
func (q *reaper) drain() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	freed := 0
	for _, c := range pending {
		if c.release() {
			leaked(c)
			freed++
		}
	}
	return freed
}

// lastError reads the runtime's diagnostic side channel.
func lastError(lib native.Library, rt native.Handle) string {
	if rt == 0 {
		return ""
	}
	return lib.RuntimeError(rt)
}

// callError maps a failed call result to the error taxonomy, attaching
// the runtime's diagnostic.
func callError(code native.Result, function, diag string) error {
	switch code {
	case native.ErrNotFound:
		return errors.New(errors.PhaseCall, errors.KindNotFound).
			Entity("function").
			Name(function).
			Native(diag).
			Detail("not declared in module").
			Build()
	case native.ErrTypeMismatch:
		return errors.New(errors.PhaseCall, errors.KindTypeMismatch).
			Entity("function").
			Name(function).
			Native(diag).
			Detail("argument type mismatch").
			Build()
	case native.ErrInvalidArgs:
		return errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Entity("function").
			Name(function).
			Native(diag).
			Detail("invalid arguments").
			Build()
	case native.ErrRuntime, native.ErrCompile:
		return errors.ExecutionFault(function, diag)
	default:
		return errors.New(errors.PhaseCall, errors.KindExecutionFault).
			Entity("function").
			Name(function).
			Native(diag).
			Detail("unexpected result %s", code).
			Build()
	}
}

// valueError maps a failed accessor result.
func valueError(code native.Result, want string, got Type) error {
	if code == native.ErrTypeMismatch {
		return errors.TypeMismatch(want, got.String())
	}
	return errors.New(errors.PhaseValue, errors.KindInvalidData).
		Entity("value").
		Detail("reading %s: %s", want, code).
		Build()
}
