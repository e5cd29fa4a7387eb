// Package flowbind provides Go bindings for the native Flow runtime.
//
// The Flow compiler and interpreter live in a native library (flowjni);
// these packages find and load it, manage the lifetime of its handles, and
// expose compilation, reflection and calls as ordinary Go.
//
// # Architecture Overview
//
//	flowbind/            Root package with the binding version
//	├── runtime/         Runtime, Module, Function and Value
//	├── locator/         Library discovery (system path, bundled, dev builds)
//	├── native/          Driver registry and the C API as a Go interface
//	│   ├── dylib/       Shared library driver (purego, no cgo)
//	│   ├── wasm/        wasm32 build of the runtime under wazero
//	│   └── nativetest/  In-process runtime for tests
//	├── resource/        Ownership table for handles a runtime hands out
//	├── errors/          Structured error types for every native boundary
//	└── cmd/flowrun/     Command line inspector and caller
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Compile(ctx, source, "math")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sum, err := mod.Invoke(ctx, rt, "add", 2, 3)
//	fmt.Println(sum) // 5
//
// # Drivers
//
// The default "dylib" driver loads libflowjni.so, libflowjni.dylib or
// flowjni.dll. Import native/wasm and set the locator's driver to "wasm"
// to run flowjni.wasm in-process instead. Drivers register themselves
// when their package is imported.
//
// # Thread Safety
//
// Loading the library is synchronized. A Runtime and everything created
// from it must be used by one goroutine at a time.
package flowbind
