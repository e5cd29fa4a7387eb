// Package native defines the boundary to the Flow runtime library.
//
// A Library is one opened copy of the runtime. Its methods map one to one
// onto the exported C API, with reflection replies normalized into Go
// slices. Drivers produce Libraries:
//
//	dylib  shared library via dlopen/LoadLibrary (native/dylib)
//	wasm   the runtime compiled to wasm32, run by wazero (native/wasm)
//	test   an in-process reference implementation (native/nativetest)
//
// Drivers register themselves in init, so importing a driver package for
// side effects makes it available to the locator:
//
//	import _ "github.com/wippyai/flowbind/native/dylib"
//
// Library implementations are not safe for concurrent use unless they say
// otherwise; callers serialize access per runtime handle.
package native
