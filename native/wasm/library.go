package wasm

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/flowbind/native"
)

// Guest exports beyond the C API.
const (
	SymAlloc     = "flow_alloc"   // (size i32) -> ptr i32
	SymDealloc   = "flow_dealloc" // (ptr i32)
	MemoryExport = "memory"
)

// wasm32 layout of flow_function_info_t and flow_param_info_t
const (
	infoSize  = 16
	paramSize = 8
)

// Library is a wasm32 build of the Flow runtime instantiated in wazero.
// Calls are serialized because a guest instance is single-threaded.
type Library struct {
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module
	mem     *guestMemory
	fns     map[string]api.Function
	trap    string
	scratch uint32
	mu      sync.Mutex
	closed  bool
}

var _ native.Library = (*Library)(nil)

func runtimeConfig(cfg Config) wazero.RuntimeConfig {
	var rc wazero.RuntimeConfig
	switch cfg.Mode {
	case ModeCompiler:
		rc = wazero.NewRuntimeConfigCompiler()
	case ModeInterpreter:
		rc = wazero.NewRuntimeConfigInterpreter()
	default:
		rc = wazero.NewRuntimeConfig()
	}
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return rc
}

// Load compiles and instantiates a wasm build of the runtime.
func Load(ctx context.Context, wasmBytes []byte, cfg Config) (*Library, error) {
	r := wazero.NewRuntimeWithConfig(ctx, runtimeConfig(cfg))

	fail := func(err error) (*Library, error) {
		_ = r.Close(ctx)
		return nil, err
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fail(fmt.Errorf("compile failed: %w", err))
	}
	if err := checkExports(compiled); err != nil {
		return fail(err)
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return fail(fmt.Errorf("instantiate WASI: %w", err))
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("flow").
		WithStartFunctions("_initialize"))
	if err != nil {
		return fail(fmt.Errorf("instantiate failed: %w", err))
	}

	l := &Library{
		ctx:     context.Background(),
		runtime: r,
		module:  mod,
		mem:     &guestMemory{mem: mod.ExportedMemory(MemoryExport)},
		fns:     make(map[string]api.Function, len(native.Symbols)+2),
	}
	for _, name := range append([]string{SymAlloc, SymDealloc}, native.Symbols...) {
		l.fns[name] = mod.ExportedFunction(name)
	}

	scratch, ok := l.alloc(16)
	if !ok {
		return fail(fmt.Errorf("allocate scratch slot: %s", l.trap))
	}
	l.scratch = scratch

	return l, nil
}

// checkExports reports every missing export at once.
func checkExports(compiled wazero.CompiledModule) error {
	exported := compiled.ExportedFunctions()

	var missing []string
	for _, name := range append([]string{SymAlloc, SymDealloc}, native.Symbols...) {
		if _, ok := exported[name]; !ok {
			missing = append(missing, name)
		}
	}
	if _, ok := compiled.ExportedMemories()[MemoryExport]; !ok {
		missing = append(missing, MemoryExport)
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%s: %w", strings.Join(missing, ", "), native.ErrSymbolNotFound)
}

// invoke calls a guest export. A trap is remembered for the next
// RuntimeError query and reported as ok=false.
func (l *Library) invoke(name string, params ...uint64) (uint64, bool) {
	if l.closed {
		l.trap = native.ErrLibraryClosed.Error()
		return 0, false
	}
	res, err := l.fns[name].Call(l.ctx, params...)
	if err != nil {
		l.trap = fmt.Sprintf("%s trapped: %v", name, err)
		Logger().Warn("guest call failed", zap.String("function", name), zap.Error(err))
		return 0, false
	}
	if len(res) == 0 {
		return 0, true
	}
	return res[0], true
}

func (l *Library) alloc(size uint32) (uint32, bool) {
	p, ok := l.invoke(SymAlloc, uint64(size))
	if !ok || uint32(p) == 0 {
		return 0, false
	}
	return uint32(p), true
}

func (l *Library) free(ptr uint32) {
	if ptr != 0 {
		l.invoke(SymDealloc, uint64(ptr))
	}
}

// cstring copies s into guest memory with a trailing NUL.
func (l *Library) cstring(s string) (uint32, bool) {
	ptr, ok := l.alloc(uint32(len(s) + 1))
	if !ok {
		return 0, false
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if err := l.mem.Write(ptr, buf); err != nil {
		l.trap = err.Error()
		l.free(ptr)
		return 0, false
	}
	return ptr, true
}

// handleArray copies handles into a guest FlowValue* array.
func (l *Library) handleArray(args []native.Handle) (uint32, bool) {
	if len(args) == 0 {
		return 0, true
	}
	ptr, ok := l.alloc(uint32(4 * len(args)))
	if !ok {
		return 0, false
	}
	for i, h := range args {
		if err := l.mem.WriteU32(ptr+uint32(4*i), uint32(h)); err != nil {
			l.trap = err.Error()
			l.free(ptr)
			return 0, false
		}
	}
	return ptr, true
}

func handle(v uint64) native.Handle {
	return native.Handle(uint32(v))
}

func ptr(h native.Handle) uint64 {
	return uint64(uint32(h))
}

func (l *Library) RuntimeNew() native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, _ := l.invoke(native.SymRuntimeNew)
	return handle(res)
}

func (l *Library) RuntimeFree(rt native.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invoke(native.SymRuntimeFree, ptr(rt))
}

// RuntimeError returns a pending trap first, then the guest's own message.
func (l *Library) RuntimeError(rt native.Handle) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.trap != "" {
		msg := l.trap
		l.trap = ""
		return msg
	}
	p, ok := l.invoke(native.SymRuntimeGetError, ptr(rt))
	if !ok {
		return l.trap
	}
	msg, err := l.mem.ReadCString(uint32(p))
	if err != nil {
		return err.Error()
	}
	return msg
}

func (l *Library) ModuleCompile(rt native.Handle, source, name string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.cstring(source)
	if !ok {
		return 0
	}
	defer l.free(src)
	cname, ok := l.cstring(name)
	if !ok {
		return 0
	}
	defer l.free(cname)

	res, _ := l.invoke(native.SymModuleCompile, ptr(rt), uint64(src), uint64(cname))
	return handle(res)
}

func (l *Library) ModuleLoadFile(rt native.Handle, path string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	cpath, ok := l.cstring(path)
	if !ok {
		return 0
	}
	defer l.free(cpath)

	res, _ := l.invoke(native.SymModuleLoadFile, ptr(rt), uint64(cpath))
	return handle(res)
}

func (l *Library) ModuleFree(m native.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invoke(native.SymModuleFree, ptr(m))
}

func (l *Library) ModuleGetFunction(m native.Handle, name string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	cname, ok := l.cstring(name)
	if !ok {
		return 0
	}
	defer l.free(cname)

	res, _ := l.invoke(native.SymModuleGetFunction, ptr(m), uint64(cname))
	return handle(res)
}

func (l *Library) FunctionParamCount(fn native.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.invoke(native.SymFunctionGetParamCount, ptr(fn))
	if !ok {
		return -1
	}
	return int(int32(res))
}

func (l *Library) FunctionCall(rt, fn native.Handle, args []native.Handle) (native.Handle, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	argv, ok := l.handleArray(args)
	if !ok {
		return 0, native.ErrRuntime
	}
	defer l.free(argv)

	res, ok := l.invoke(native.SymFunctionCall, ptr(rt), ptr(fn), uint64(argv), uint64(len(args)), uint64(l.scratch))
	return l.callResult(res, ok)
}

func (l *Library) Call(rt, m native.Handle, name string, args []native.Handle) (native.Handle, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cname, ok := l.cstring(name)
	if !ok {
		return 0, native.ErrRuntime
	}
	defer l.free(cname)
	argv, ok := l.handleArray(args)
	if !ok {
		return 0, native.ErrRuntime
	}
	defer l.free(argv)

	res, ok := l.invoke(native.SymCall, ptr(rt), ptr(m), uint64(cname), uint64(argv), uint64(len(args)), uint64(l.scratch))
	return l.callResult(res, ok)
}

// callResult reads the FlowValue* out-parameter left in the scratch slot.
func (l *Library) callResult(res uint64, ok bool) (native.Handle, native.Result) {
	if !ok {
		return 0, native.ErrRuntime
	}
	code := native.Result(int32(res))
	if code != native.OK {
		return 0, code
	}
	out, err := l.mem.ReadU32(l.scratch)
	if err != nil {
		l.trap = err.Error()
		return 0, native.ErrRuntime
	}
	return native.Handle(out), native.OK
}

func (l *Library) ReflectFunctionCount(m native.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.invoke(native.SymReflectFunctionCount, ptr(m))
	if !ok {
		return -1
	}
	return int(int32(res))
}

func (l *Library) ReflectListFunctions(m native.Handle) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.invoke(native.SymReflectListFunctions, ptr(m), uint64(l.scratch))
	n := int(int32(res))
	if !ok || n <= 0 {
		return nil
	}
	arr, err := l.mem.ReadU32(l.scratch)
	if err != nil || arr == 0 {
		return nil
	}
	defer l.invoke(native.SymReflectFreeNames, uint64(arr), uint64(n))

	ptrs, err := l.mem.ReadPtrArray(arr, n)
	if err != nil {
		l.trap = err.Error()
		return nil
	}
	names := make([]string, 0, n)
	for _, p := range ptrs {
		s, err := l.mem.ReadCString(p)
		if err != nil {
			l.trap = err.Error()
			return nil
		}
		names = append(names, s)
	}
	return names
}

// ReflectFunctionInfo flattens a guest flow_function_info_t. A reply that
// cannot be read comes back empty so the caller sees malformed data rather
// than an unknown name.
func (l *Library) ReflectFunctionInfo(m native.Handle, name string) ([]string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cname, ok := l.cstring(name)
	if !ok {
		return nil, false
	}
	defer l.free(cname)

	res, ok := l.invoke(native.SymReflectGetFunctionInfo, ptr(m), uint64(cname))
	info := uint32(res)
	if !ok || info == 0 {
		return nil, false
	}
	defer l.invoke(native.SymReflectFreeFunctionInfo, uint64(info))

	flat, err := l.readInfo(info)
	if err != nil {
		l.trap = err.Error()
		return []string{}, true
	}
	return flat, true
}

func (l *Library) readInfo(info uint32) ([]string, error) {
	raw, err := l.mem.Read(info, infoSize)
	if err != nil {
		return nil, err
	}
	le := func(b []byte) uint32 {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	namePtr, retPtr := le(raw[0:4]), le(raw[4:8])
	count, params := int32(le(raw[8:12])), le(raw[12:16])
	if count < 0 {
		return nil, fmt.Errorf("negative parameter count %d", count)
	}

	fields := []uint32{namePtr, retPtr}
	for i := uint32(0); i < uint32(count); i++ {
		pair, err := l.mem.ReadPtrArray(params+i*paramSize, 2)
		if err != nil {
			return nil, err
		}
		fields = append(fields, pair...)
	}

	flat := make([]string, len(fields))
	for i, p := range fields {
		if flat[i], err = l.mem.ReadCString(p); err != nil {
			return nil, err
		}
	}
	return flat, nil
}

func (l *Library) ValueNewInt(rt native.Handle, v int64) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, _ := l.invoke(native.SymValueNewInt, ptr(rt), uint64(v))
	return handle(res)
}

func (l *Library) ValueNewFloat(rt native.Handle, v float64) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, _ := l.invoke(native.SymValueNewFloat, ptr(rt), api.EncodeF64(v))
	return handle(res)
}

func (l *Library) ValueNewString(rt native.Handle, v string) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	cs, ok := l.cstring(v)
	if !ok {
		return 0
	}
	defer l.free(cs)

	res, _ := l.invoke(native.SymValueNewString, ptr(rt), uint64(cs))
	return handle(res)
}

func (l *Library) ValueNewBool(rt native.Handle, v bool) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b uint64
	if v {
		b = 1
	}
	res, _ := l.invoke(native.SymValueNewBool, ptr(rt), b)
	return handle(res)
}

func (l *Library) ValueNewNull(rt native.Handle) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, _ := l.invoke(native.SymValueNewNull, ptr(rt))
	return handle(res)
}

func (l *Library) ValueFree(v native.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invoke(native.SymValueFree, ptr(v))
}

func (l *Library) ValueType(v native.Handle) native.ValueCode {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.invoke(native.SymValueGetType, ptr(v))
	if !ok {
		return native.TypeNull
	}
	return native.ValueCode(int32(res))
}

// outU64 runs a getter that writes through an out-pointer into scratch.
func (l *Library) outU64(sym string, v native.Handle) (uint64, native.Result) {
	res, ok := l.invoke(sym, ptr(v), uint64(l.scratch))
	if !ok {
		return 0, native.ErrRuntime
	}
	if code := native.Result(int32(res)); code != native.OK {
		return 0, code
	}
	out, err := l.mem.ReadU64(l.scratch)
	if err != nil {
		l.trap = err.Error()
		return 0, native.ErrRuntime
	}
	return out, native.OK
}

func (l *Library) ValueInt(v native.Handle) (int64, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out, code := l.outU64(native.SymValueGetInt, v)
	return int64(out), code
}

func (l *Library) ValueFloat(v native.Handle) (float64, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out, code := l.outU64(native.SymValueGetFloat, v)
	return math.Float64frombits(out), code
}

func (l *Library) ValueString(v native.Handle) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.invoke(native.SymValueGetString, ptr(v))
	if !ok || uint32(p) == 0 {
		return "", false
	}
	s, err := l.mem.ReadCString(uint32(p))
	if err != nil {
		l.trap = err.Error()
		return "", false
	}
	return s, true
}

func (l *Library) ValueBool(v native.Handle) (bool, native.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.invoke(native.SymValueGetBool, ptr(v), uint64(l.scratch))
	if !ok {
		return false, native.ErrRuntime
	}
	if code := native.Result(int32(res)); code != native.OK {
		return false, code
	}
	out, err := l.mem.ReadU32(l.scratch)
	if err != nil {
		l.trap = err.Error()
		return false, native.ErrRuntime
	}
	return out != 0, native.OK
}

// Close tears down the guest instance and its wazero runtime.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.runtime.Close(l.ctx)
}
