package wasm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/flowbind/native"
)

func loadFake(t *testing.T) *Library {
	t.Helper()
	lib, err := Load(context.Background(), fakeRuntime(), Config{Mode: ModeInterpreter})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func TestLoad_InvalidBytes(t *testing.T) {
	_, err := Load(context.Background(), []byte("not wasm"), Config{})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(err.Error(), "compile failed") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_MissingExports(t *testing.T) {
	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	_, err := Load(context.Background(), empty, Config{})
	if !errors.Is(err, native.ErrSymbolNotFound) {
		t.Fatalf("error = %v, want ErrSymbolNotFound", err)
	}
	for _, want := range []string{SymAlloc, MemoryExport, native.SymRuntimeNew} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err, want)
		}
	}
}

func TestLibrary_RuntimeAndModule(t *testing.T) {
	lib := loadFake(t)

	rt := lib.RuntimeNew()
	if rt != 8 {
		t.Fatalf("RuntimeNew = %d, want 8", rt)
	}
	if got := lib.RuntimeError(rt); got != "boom" {
		t.Errorf("RuntimeError = %q, want boom", got)
	}

	m := lib.ModuleCompile(rt, "func add(a: int) -> int { return a }", "m")
	if m != 16 {
		t.Fatalf("ModuleCompile = %d, want 16", m)
	}
	fn := lib.ModuleGetFunction(m, "add")
	if fn != 24 {
		t.Fatalf("ModuleGetFunction = %d, want 24", fn)
	}
	if n := lib.FunctionParamCount(fn); n != 2 {
		t.Errorf("FunctionParamCount = %d, want 2", n)
	}

	lib.ModuleFree(m)
	lib.RuntimeFree(rt)
}

func TestLibrary_Calls(t *testing.T) {
	lib := loadFake(t)
	rt := lib.RuntimeNew()

	// the guest echoes args[0]
	out, code := lib.FunctionCall(rt, 24, []native.Handle{200, 208})
	if code != native.OK || out != 200 {
		t.Errorf("FunctionCall = (%d, %v), want (200, OK)", out, code)
	}

	out, code = lib.Call(rt, 16, "missing", nil)
	if code != native.ErrNotFound || out != 0 {
		t.Errorf("Call = (%d, %v), want (0, ErrNotFound)", out, code)
	}
}

func TestLibrary_Reflection(t *testing.T) {
	lib := loadFake(t)

	if n := lib.ReflectFunctionCount(16); n != 1 {
		t.Errorf("ReflectFunctionCount = %d, want 1", n)
	}
	if got := lib.ReflectListFunctions(16); !reflect.DeepEqual(got, []string{"add"}) {
		t.Errorf("ReflectListFunctions = %v", got)
	}

	info, ok := lib.ReflectFunctionInfo(16, "add")
	if !ok {
		t.Fatal("ReflectFunctionInfo ok = false")
	}
	want := []string{"add", "int", "a", "int"}
	if !reflect.DeepEqual(info, want) {
		t.Errorf("ReflectFunctionInfo = %v, want %v", info, want)
	}
}

func TestLibrary_Values(t *testing.T) {
	lib := loadFake(t)
	rt := lib.RuntimeNew()

	tests := []struct {
		name string
		got  native.Handle
		want native.Handle
	}{
		{"int", lib.ValueNewInt(rt, 7), 200},
		{"float", lib.ValueNewFloat(rt, 1.5), 208},
		{"string", lib.ValueNewString(rt, "hello"), 216},
		{"bool", lib.ValueNewBool(rt, true), 224},
		{"null", lib.ValueNewNull(rt), 232},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("ValueNew %s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	if got := lib.ValueType(216); got != native.TypeString {
		t.Errorf("ValueType = %v, want string", got)
	}
	if v, code := lib.ValueInt(200); code != native.OK || v != 42 {
		t.Errorf("ValueInt = (%d, %v)", v, code)
	}
	if v, code := lib.ValueFloat(208); code != native.OK || v != 2.5 {
		t.Errorf("ValueFloat = (%v, %v)", v, code)
	}
	if v, ok := lib.ValueString(216); !ok || v != "hi" {
		t.Errorf("ValueString = (%q, %v)", v, ok)
	}
	if v, code := lib.ValueBool(224); code != native.OK || !v {
		t.Errorf("ValueBool = (%v, %v)", v, code)
	}
	lib.ValueFree(200)
}

func TestLibrary_TrapReportedOnce(t *testing.T) {
	lib := loadFake(t)
	rt := lib.RuntimeNew()

	if m := lib.ModuleLoadFile(rt, "x.flow"); m != 0 {
		t.Fatalf("ModuleLoadFile = %d, want 0 after trap", m)
	}
	msg := lib.RuntimeError(rt)
	if !strings.Contains(msg, native.SymModuleLoadFile+" trapped") {
		t.Errorf("RuntimeError = %q, want trap text", msg)
	}
	if got := lib.RuntimeError(rt); got != "boom" {
		t.Errorf("second RuntimeError = %q, want guest message", got)
	}

	// the instance survives a trap
	if m := lib.ModuleCompile(rt, "", "m"); m != 16 {
		t.Errorf("ModuleCompile after trap = %d", m)
	}
}

func TestLibrary_Close(t *testing.T) {
	lib, err := Load(context.Background(), fakeRuntime(), Config{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := lib.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := lib.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if rt := lib.RuntimeNew(); rt != 0 {
		t.Errorf("RuntimeNew after Close = %d, want 0", rt)
	}
	if msg := lib.RuntimeError(0); msg != native.ErrLibraryClosed.Error() {
		t.Errorf("RuntimeError after Close = %q", msg)
	}
}

func TestDriver(t *testing.T) {
	d, err := native.Lookup(DriverName)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if d != native.Driver(Default) {
		t.Error("registered driver is not Default")
	}

	name, err := d.FileName("flowjni", "plan9")
	if err != nil || name != "flowjni.wasm" {
		t.Errorf("FileName = (%q, %v)", name, err)
	}

	if _, err := d.Open(context.Background(), filepath.Join(t.TempDir(), "absent.wasm")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open missing file = %v, want ErrNotExist", err)
	}

	path := filepath.Join(t.TempDir(), "flowjni.wasm")
	if err := os.WriteFile(path, fakeRuntime(), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := d.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer lib.Close()
	if rt := lib.RuntimeNew(); rt == 0 {
		t.Error("RuntimeNew returned invalid handle")
	}
}

func TestGuestMemory(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, buildGuest(nil, []dataSegment{
		{16, []byte("abc\x00")},
		{32, le32(16, 0)},
	}, 1024))
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	m := &guestMemory{mem: mod.ExportedMemory(MemoryExport)}

	if s, err := m.ReadCString(16); err != nil || s != "abc" {
		t.Errorf("ReadCString = (%q, %v)", s, err)
	}
	if s, err := m.ReadCString(0); err != nil || s != "" {
		t.Errorf("ReadCString(0) = (%q, %v)", s, err)
	}
	if _, err := m.ReadCString(1 << 20); err == nil {
		t.Error("expected out of bounds error")
	}

	ptrs, err := m.ReadPtrArray(32, 2)
	if err != nil || !reflect.DeepEqual(ptrs, []uint32{16, 0}) {
		t.Errorf("ReadPtrArray = (%v, %v)", ptrs, err)
	}

	if err := m.WriteU32(48, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if v, err := m.ReadU32(48); err != nil || v != 0xdeadbeef {
		t.Errorf("ReadU32 = (%x, %v)", v, err)
	}
	if err := m.Write(65536-2, []byte("xyz")); err == nil {
		t.Error("expected write out of bounds")
	}

	// fill the page tail so no NUL follows
	tail := make([]byte, 8)
	for i := range tail {
		tail[i] = 'z'
	}
	if err := m.Write(65536-8, tail); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ReadCString(65536 - 8); err == nil {
		t.Error("expected unterminated string error")
	}
}
