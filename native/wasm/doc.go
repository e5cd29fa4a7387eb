// Package wasm runs a wasm32 build of the Flow runtime under wazero.
//
// The guest exports the same C API as the shared library plus an
// allocator pair (flow_alloc, flow_dealloc) and its linear memory. Host
// strings are copied into guest memory NUL-terminated; out-parameters go
// through a scratch slot allocated once per instance; pointer arrays and
// flow_function_info_t are read with the wasm32 layout (4-byte pointers).
//
// A guest trap does not panic the host. The failing call returns the
// invalid handle or ErrRuntime and the trap text is reported by the next
// RuntimeError query.
//
// Importing the package registers the "wasm" driver.
package wasm
