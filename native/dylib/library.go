//go:build darwin || freebsd || linux || windows

package dylib

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/wippyai/flowbind/native"
)

// flow_function_info_t
type cFunctionInfo struct {
	name       *byte
	returnType *byte
	paramCount int32
	params     *cParamInfo
}

// flow_param_info_t
type cParamInfo struct {
	name *byte
	typ  *byte
}

// Library is a Flow runtime loaded through dlopen or LoadLibrary.
// It must not be used after Close.
type Library struct {
	lib  *dl
	path string

	runtimeNew      func() uintptr
	runtimeFree     func(rt uintptr)
	runtimeGetError func(rt uintptr) *byte

	moduleCompile     func(rt uintptr, source, name string) uintptr
	moduleLoadFile    func(rt uintptr, path string) uintptr
	moduleFree        func(m uintptr)
	moduleGetFunction func(m uintptr, name string) uintptr

	functionGetParamCount func(fn uintptr) int32
	functionCall          func(rt, fn uintptr, args *uintptr, n int32, out *uintptr) int32
	call                  func(rt, m uintptr, name string, args *uintptr, n int32, out *uintptr) int32

	reflectFunctionCount    func(m uintptr) int32
	reflectListFunctions    func(m uintptr, names *unsafe.Pointer) int32
	reflectFreeNames        func(names unsafe.Pointer, n int32)
	reflectGetFunctionInfo  func(m uintptr, name string) *cFunctionInfo
	reflectFreeFunctionInfo func(info *cFunctionInfo)

	valueNewInt    func(rt uintptr, v int64) uintptr
	valueNewFloat  func(rt uintptr, v float64) uintptr
	valueNewString func(rt uintptr, v string) uintptr
	valueNewBool   func(rt uintptr, v int32) uintptr
	valueNewNull   func(rt uintptr) uintptr
	valueFree      func(v uintptr)
	valueGetType   func(v uintptr) int32
	valueGetInt    func(v uintptr, out *int64) int32
	valueGetFloat  func(v uintptr, out *float64) int32
	valueGetString func(v uintptr) *byte
	valueGetBool   func(v uintptr, out *int32) int32

	closeOnce sync.Once
	closeErr  error
}

var _ native.Library = (*Library)(nil)

func open(path string) (native.Library, error) {
	lib, err := dlopen(path)
	if err != nil {
		return nil, err
	}

	l := &Library{lib: lib, path: path}
	if err := l.bind(); err != nil {
		_ = lib.close()
		return nil, err
	}
	return l, nil
}

func (l *Library) symbols() map[string]any {
	return map[string]any{
		native.SymRuntimeNew:              &l.runtimeNew,
		native.SymRuntimeFree:             &l.runtimeFree,
		native.SymRuntimeGetError:         &l.runtimeGetError,
		native.SymModuleCompile:           &l.moduleCompile,
		native.SymModuleLoadFile:          &l.moduleLoadFile,
		native.SymModuleFree:              &l.moduleFree,
		native.SymModuleGetFunction:       &l.moduleGetFunction,
		native.SymFunctionGetParamCount:   &l.functionGetParamCount,
		native.SymFunctionCall:            &l.functionCall,
		native.SymCall:                    &l.call,
		native.SymReflectFunctionCount:    &l.reflectFunctionCount,
		native.SymReflectListFunctions:    &l.reflectListFunctions,
		native.SymReflectFreeNames:        &l.reflectFreeNames,
		native.SymReflectGetFunctionInfo:  &l.reflectGetFunctionInfo,
		native.SymReflectFreeFunctionInfo: &l.reflectFreeFunctionInfo,
		native.SymValueNewInt:             &l.valueNewInt,
		native.SymValueNewFloat:           &l.valueNewFloat,
		native.SymValueNewString:          &l.valueNewString,
		native.SymValueNewBool:            &l.valueNewBool,
		native.SymValueNewNull:            &l.valueNewNull,
		native.SymValueFree:               &l.valueFree,
		native.SymValueGetType:            &l.valueGetType,
		native.SymValueGetInt:             &l.valueGetInt,
		native.SymValueGetFloat:           &l.valueGetFloat,
		native.SymValueGetString:          &l.valueGetString,
		native.SymValueGetBool:            &l.valueGetBool,
	}
}

func (l *Library) bind() error {
	table := l.symbols()
	for _, name := range native.Symbols {
		addr, err := l.lib.sym(name)
		if err != nil || addr == 0 {
			return fmt.Errorf("%s in %s: %w", name, l.path, native.ErrSymbolNotFound)
		}
		purego.RegisterFunc(table[name], addr)
	}
	return nil
}

func (l *Library) RuntimeNew() native.Handle {
	return native.Handle(l.runtimeNew())
}

func (l *Library) RuntimeFree(rt native.Handle) {
	l.runtimeFree(uintptr(rt))
}

func (l *Library) RuntimeError(rt native.Handle) string {
	return goString(l.runtimeGetError(uintptr(rt)))
}

func (l *Library) ModuleCompile(rt native.Handle, source, name string) native.Handle {
	return native.Handle(l.moduleCompile(uintptr(rt), source, name))
}

func (l *Library) ModuleLoadFile(rt native.Handle, path string) native.Handle {
	return native.Handle(l.moduleLoadFile(uintptr(rt), path))
}

func (l *Library) ModuleFree(m native.Handle) {
	l.moduleFree(uintptr(m))
}

func (l *Library) ModuleGetFunction(m native.Handle, name string) native.Handle {
	return native.Handle(l.moduleGetFunction(uintptr(m), name))
}

func (l *Library) FunctionParamCount(fn native.Handle) int {
	return int(l.functionGetParamCount(uintptr(fn)))
}

func (l *Library) FunctionCall(rt, fn native.Handle, args []native.Handle) (native.Handle, native.Result) {
	argv, n := handleArray(args)
	var out uintptr
	res := l.functionCall(uintptr(rt), uintptr(fn), argv, n, &out)
	return native.Handle(out), native.Result(res)
}

func (l *Library) Call(rt, m native.Handle, name string, args []native.Handle) (native.Handle, native.Result) {
	argv, n := handleArray(args)
	var out uintptr
	res := l.call(uintptr(rt), uintptr(m), name, argv, n, &out)
	return native.Handle(out), native.Result(res)
}

func (l *Library) ReflectFunctionCount(m native.Handle) int {
	return int(l.reflectFunctionCount(uintptr(m)))
}

func (l *Library) ReflectListFunctions(m native.Handle) []string {
	var names unsafe.Pointer
	n := l.reflectListFunctions(uintptr(m), &names)
	if n <= 0 || names == nil {
		return nil
	}
	defer l.reflectFreeNames(names, n)

	return goStrings(names, int(n))
}

func (l *Library) ReflectFunctionInfo(m native.Handle, name string) ([]string, bool) {
	info := l.reflectGetFunctionInfo(uintptr(m), name)
	if info == nil {
		return nil, false
	}
	defer l.reflectFreeFunctionInfo(info)

	return flattenInfo(info), true
}

func (l *Library) ValueNewInt(rt native.Handle, v int64) native.Handle {
	return native.Handle(l.valueNewInt(uintptr(rt), v))
}

func (l *Library) ValueNewFloat(rt native.Handle, v float64) native.Handle {
	return native.Handle(l.valueNewFloat(uintptr(rt), v))
}

func (l *Library) ValueNewString(rt native.Handle, v string) native.Handle {
	return native.Handle(l.valueNewString(uintptr(rt), v))
}

func (l *Library) ValueNewBool(rt native.Handle, v bool) native.Handle {
	var b int32
	if v {
		b = 1
	}
	return native.Handle(l.valueNewBool(uintptr(rt), b))
}

func (l *Library) ValueNewNull(rt native.Handle) native.Handle {
	return native.Handle(l.valueNewNull(uintptr(rt)))
}

func (l *Library) ValueFree(v native.Handle) {
	l.valueFree(uintptr(v))
}

func (l *Library) ValueType(v native.Handle) native.ValueCode {
	return native.ValueCode(l.valueGetType(uintptr(v)))
}

func (l *Library) ValueInt(v native.Handle) (int64, native.Result) {
	var out int64
	res := l.valueGetInt(uintptr(v), &out)
	return out, native.Result(res)
}

func (l *Library) ValueFloat(v native.Handle) (float64, native.Result) {
	var out float64
	res := l.valueGetFloat(uintptr(v), &out)
	return out, native.Result(res)
}

func (l *Library) ValueString(v native.Handle) (string, bool) {
	p := l.valueGetString(uintptr(v))
	if p == nil {
		return "", false
	}
	return goString(p), true
}

func (l *Library) ValueBool(v native.Handle) (bool, native.Result) {
	var out int32
	res := l.valueGetBool(uintptr(v), &out)
	return out != 0, native.Result(res)
}

// Close unloads the library. Handles obtained from it become invalid.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.lib.close()
	})
	return l.closeErr
}

func handleArray(args []native.Handle) (*uintptr, int32) {
	if len(args) == 0 {
		return nil, 0
	}
	argv := make([]uintptr, len(args))
	for i, h := range args {
		argv[i] = uintptr(h)
	}
	return &argv[0], int32(len(argv))
}

// flattenInfo converts a flow_function_info_t into
// [name, return, (param, type)*].
func flattenInfo(info *cFunctionInfo) []string {
	n := int(info.paramCount)
	if n < 0 || (n > 0 && info.params == nil) {
		n = 0
	}
	flat := make([]string, 0, 2+2*n)
	flat = append(flat, goString(info.name), goString(info.returnType))
	if n > 0 {
		for _, p := range unsafe.Slice(info.params, n) {
			flat = append(flat, goString(p.name), goString(p.typ))
		}
	}
	return flat
}

// goStrings copies n C strings out of a char* array.
func goStrings(arr unsafe.Pointer, n int) []string {
	ptrs := unsafe.Slice((**byte)(arr), n)
	out := make([]string, n)
	for i, p := range ptrs {
		out[i] = goString(p)
	}
	return out
}

// goString copies a NUL-terminated C string. A nil pointer yields "".
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
