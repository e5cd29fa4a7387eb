package native

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Handle is an opaque native pointer. 0 is the invalid sentinel.
type Handle uint64

// ValueCode mirrors FlowValueType.
type ValueCode int32

const (
	TypeInt ValueCode = iota
	TypeFloat
	TypeString
	TypeBool
	TypeArray
	TypeStruct
	TypeNull
)

func (c ValueCode) String() string {
	switch c {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeArray:
		return "array"
	case TypeStruct:
		return "struct"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("type(%d)", int32(c))
	}
}

// Result mirrors FlowResult.
type Result int32

const (
	OK              Result = 0
	ErrRuntime      Result = -1
	ErrCompile      Result = -2
	ErrNotFound     Result = -3
	ErrTypeMismatch Result = -4
	ErrInvalidArgs  Result = -5
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case ErrRuntime:
		return "runtime error"
	case ErrCompile:
		return "compile error"
	case ErrNotFound:
		return "not found"
	case ErrTypeMismatch:
		return "type mismatch"
	case ErrInvalidArgs:
		return "invalid arguments"
	default:
		return fmt.Sprintf("result(%d)", int32(r))
	}
}

// Library is one opened copy of the Flow runtime. Method names follow the
// exported C symbols; a zero Handle return means the native side failed.
//
// Reflection replies are normalized by the driver: ModuleListFunctions
// returns the names in declaration order and ModuleFunctionInfo returns
// the flat [name, return, (param, type)*] array, or ok=false when the
// module does not declare the name.
type Library interface {
	RuntimeNew() Handle
	RuntimeFree(rt Handle)
	RuntimeError(rt Handle) string

	ModuleCompile(rt Handle, source, name string) Handle
	ModuleLoadFile(rt Handle, path string) Handle
	ModuleFree(m Handle)
	ModuleGetFunction(m Handle, name string) Handle

	FunctionParamCount(fn Handle) int
	FunctionCall(rt, fn Handle, args []Handle) (Handle, Result)
	Call(rt, m Handle, name string, args []Handle) (Handle, Result)

	ReflectFunctionCount(m Handle) int
	ReflectListFunctions(m Handle) []string
	ReflectFunctionInfo(m Handle, name string) (flat []string, ok bool)

	ValueNewInt(rt Handle, v int64) Handle
	ValueNewFloat(rt Handle, v float64) Handle
	ValueNewString(rt Handle, v string) Handle
	ValueNewBool(rt Handle, v bool) Handle
	ValueNewNull(rt Handle) Handle
	ValueFree(v Handle)
	ValueType(v Handle) ValueCode
	ValueInt(v Handle) (int64, Result)
	ValueFloat(v Handle) (float64, Result)
	ValueString(v Handle) (string, bool)
	ValueBool(v Handle) (bool, Result)

	io.Closer
}

// Driver knows how to name and open one flavor of the runtime library.
type Driver interface {
	// FileName maps a logical library name to the file the driver loads
	// on the given GOOS.
	FileName(logical, goos string) (string, error)

	// Open loads the library at path. A bare file name is resolved by the
	// platform loader's own search path.
	Open(ctx context.Context, path string) (Library, error)
}

// DefaultDriver is used when no driver is configured.
const DefaultDriver = "dylib"

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics on duplicates.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if d == nil {
		panic("native: Register driver is nil")
	}
	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("native: driver %s already registered", name))
	}
	drivers[name] = d
}

// Lookup returns a registered driver. An empty name selects DefaultDriver.
func Lookup(name string) (Driver, error) {
	if name == "" {
		name = DefaultDriver
	}

	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown driver %q: %w", name, ErrDriverNotFound)
	}
	return d, nil
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
