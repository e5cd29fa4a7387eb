package wasm

import (
	"encoding/binary"
	"math"
)

// Minimal wasm binary encoder for test guests.

const (
	i32 = 0x7f
	i64 = 0x7e
	f64 = 0x7c
)

type guestFunc struct {
	name    string
	params  []byte
	results []byte
	body    []byte
}

type dataSegment struct {
	offset int32
	bytes  []byte
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

func vec(items [][]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

// buildGuest encodes a module with one page of exported memory, a mutable
// i32 global used as a heap pointer, the given functions and data.
func buildGuest(funcs []guestFunc, data []dataSegment, heapStart int32) []byte {
	var types, indices, exports, bodies [][]byte
	for i, f := range funcs {
		t := []byte{0x60}
		t = append(t, vec(bytesOf(f.params))...)
		t = append(t, vec(bytesOf(f.results))...)
		types = append(types, t)
		indices = append(indices, uleb(uint32(i)))

		e := name(f.name)
		e = append(e, 0x00)
		e = append(e, uleb(uint32(i))...)
		exports = append(exports, e)

		code := []byte{0x00} // no extra locals
		code = append(code, f.body...)
		code = append(code, 0x0b)
		bodies = append(bodies, append(uleb(uint32(len(code))), code...))
	}
	exports = append(exports, append(name("memory"), 0x02, 0x00))

	global := []byte{i32, 0x01, 0x41}
	global = append(global, sleb(int64(heapStart))...)
	global = append(global, 0x0b)

	var segs [][]byte
	for _, d := range data {
		s := []byte{0x00, 0x41}
		s = append(s, sleb(int64(d.offset))...)
		s = append(s, 0x0b)
		s = append(s, uleb(uint32(len(d.bytes)))...)
		s = append(s, d.bytes...)
		segs = append(segs, s)
	}

	mod := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, section(1, vec(types))...)
	mod = append(mod, section(3, vec(indices))...)
	mod = append(mod, section(5, []byte{0x01, 0x00, 0x01})...)
	mod = append(mod, section(6, vec([][]byte{global}))...)
	mod = append(mod, section(7, vec(exports))...)
	mod = append(mod, section(10, vec(bodies))...)
	if len(segs) > 0 {
		mod = append(mod, section(11, vec(segs))...)
	}
	return mod
}

func bytesOf(b []byte) [][]byte {
	out := make([][]byte, len(b))
	for i := range b {
		out[i] = []byte{b[i]}
	}
	return out
}

// instruction helpers
func localGet(i uint32) []byte { return append([]byte{0x20}, uleb(i)...) }
func i32Const(v int32) []byte  { return append([]byte{0x41}, sleb(int64(v))...) }
func i64Const(v int64) []byte  { return append([]byte{0x42}, sleb(v)...) }

func f64Const(v float64) []byte {
	b := make([]byte, 9)
	b[0] = 0x44
	binary.LittleEndian.PutUint64(b[1:], math.Float64bits(v))
	return b
}

var (
	i32Store = []byte{0x36, 0x02, 0x00}
	i32Load  = []byte{0x28, 0x02, 0x00}
	i64Store = []byte{0x37, 0x03, 0x00}
	f64Store = []byte{0x39, 0x03, 0x00}
)

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func le32(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

// Guest memory map of the fake runtime
const (
	addrError  = 64  // "boom"
	addrAdd    = 80  // "add"
	addrInt    = 88  // "int"
	addrA      = 96  // "a"
	addrNames  = 100 // char*[1]
	addrInfo   = 120 // flow_function_info_t
	addrParams = 140 // flow_param_info_t[1]
	addrHi     = 160 // "hi"
)

// fakeRuntime returns a guest that implements the C API with canned
// replies. flow_module_load_file traps.
func fakeRuntime() []byte {
	p := func(ts ...byte) []byte { return ts }
	ret := func(v int32) []byte { return i32Const(v) }

	funcs := []guestFunc{
		{SymAlloc, p(i32), p(i32), []byte{0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00}},
		{SymDealloc, p(i32), nil, nil},
		{"flow_runtime_new", nil, p(i32), ret(8)},
		{"flow_runtime_free", p(i32), nil, nil},
		{"flow_runtime_get_error", p(i32), p(i32), ret(addrError)},
		{"flow_module_compile", p(i32, i32, i32), p(i32), ret(16)},
		{"flow_module_load_file", p(i32, i32), p(i32), []byte{0x00}},
		{"flow_module_free", p(i32), nil, nil},
		{"flow_module_get_function", p(i32, i32), p(i32), ret(24)},
		{"flow_function_get_param_count", p(i32), p(i32), ret(2)},
		// *out = args[0]
		{"flow_function_call", p(i32, i32, i32, i32, i32), p(i32),
			join(localGet(4), localGet(2), i32Load, i32Store, ret(0))},
		{"flow_call", p(i32, i32, i32, i32, i32, i32), p(i32), ret(-3)},
		{"flow_reflect_function_count", p(i32), p(i32), ret(1)},
		{"flow_reflect_list_functions", p(i32, i32), p(i32),
			join(localGet(1), i32Const(addrNames), i32Store, ret(1))},
		{"flow_reflect_free_names", p(i32, i32), nil, nil},
		{"flow_reflect_get_function_info", p(i32, i32), p(i32), ret(addrInfo)},
		{"flow_reflect_free_function_info", p(i32), nil, nil},
		{"flow_value_new_int", p(i32, i64), p(i32), ret(200)},
		{"flow_value_new_float", p(i32, f64), p(i32), ret(208)},
		{"flow_value_new_string", p(i32, i32), p(i32), ret(216)},
		{"flow_value_new_bool", p(i32, i32), p(i32), ret(224)},
		{"flow_value_new_null", p(i32), p(i32), ret(232)},
		{"flow_value_free", p(i32), nil, nil},
		{"flow_value_get_type", p(i32), p(i32), ret(2)},
		{"flow_value_get_int", p(i32, i32), p(i32), join(localGet(1), i64Const(42), i64Store, ret(0))},
		{"flow_value_get_float", p(i32, i32), p(i32), join(localGet(1), f64Const(2.5), f64Store, ret(0))},
		{"flow_value_get_string", p(i32), p(i32), ret(addrHi)},
		{"flow_value_get_bool", p(i32, i32), p(i32), join(localGet(1), i32Const(1), i32Store, ret(0))},
	}

	data := []dataSegment{
		{addrError, []byte("boom\x00")},
		{addrAdd, []byte("add\x00")},
		{addrInt, []byte("int\x00")},
		{addrA, []byte("a\x00")},
		{addrNames, le32(addrAdd)},
		{addrInfo, le32(addrAdd, addrInt, 1, addrParams)},
		{addrParams, le32(addrA, addrInt)},
		{addrHi, []byte("hi\x00")},
	}

	return buildGuest(funcs, data, 4096)
}
