// Package runtime is the Go API for the native Flow runtime.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Compile(ctx, `func add(a: int, b: int) -> int { return a + b; }`, "math")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	a, _ := rt.NewInt(2)
//	b, _ := rt.NewInt(3)
//	out, err := mod.Call(ctx, rt, "add", a, b)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer out.Close()
//
//	n, _ := out.AsInt() // 5
//
// Invoke does the marshaling for plain Go values:
//
//	sum, err := mod.Invoke(ctx, rt, "add", 2, 3) // int64(5)
//
// # Loading the Library
//
// New loads the native library through locator.Default() the first time
// it is needed. Use WithLocator to supply a configured locator, or
// WithLibrary to bypass loading entirely.
//
// # Reflection
//
// A compiled module describes itself without re-parsing source:
//
//	Count()      - number of declared functions
//	List()       - names in declaration order
//	Info(name)   - parameters and return type
//	Inspect()    - human-readable listing
//
// # Ownership
//
// Runtime, Module and Value each own one native handle. Close releases it
// and is safe to call more than once; any other method on a closed object
// fails with errors.ErrReleased. Value.Type and Value.IsNull panic instead,
// since they have no error result.
//
// A runtime tracks every module and value created through it. Closing the
// runtime closes those that are still open, newest first, before the
// runtime context itself is freed. Outstanding reports how many remain.
//
// Objects that become unreachable without Close are picked up by the
// garbage collector and logged as a leak. Modules and values found this
// way are freed on the runtime's next call, or when it closes, so the
// native context is only entered from its owner. Do not rely on it:
// always defer Close.
//
// # Thread Safety
//
// Library loading is synchronized. Everything else follows a single
// writer discipline: a Runtime and the modules and values created from it
// must not be used from several goroutines at once without external
// locking. Calls into native code are synchronous and cannot be
// interrupted; context arguments are accepted for symmetry and for
// drivers that honor them while loading.
package runtime
