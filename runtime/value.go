package runtime

import (
	"context"
	goruntime "runtime"
	"strconv"

	"github.com/wippyai/flowbind/errors"
	"github.com/wippyai/flowbind/native"
)

// Type is the variant a value currently holds.
type Type = native.ValueCode

const (
	TypeInt    = native.TypeInt
	TypeFloat  = native.TypeFloat
	TypeString = native.TypeString
	TypeBool   = native.TypeBool
	TypeArray  = native.TypeArray
	TypeStruct = native.TypeStruct
	TypeNull   = native.TypeNull
)

// Value is a native tagged value. Its type is asked of the native side on
// every access and never cached.
type Value struct {
	_       noCopy
	rt      *Runtime
	cell    *cell
	cleanup goruntime.Cleanup
}

func (v *Value) live() (native.Handle, error) {
	v.rt.reaper.drain()
	h := v.cell.handle()
	if h == 0 {
		return 0, errors.UseAfterRelease(errors.PhaseValue, "value")
	}
	return h, nil
}

// Released reports whether the value has been closed, either directly or
// by closing its runtime.
func (v *Value) Released() bool {
	return v.cell.handle() == 0
}

// Type returns the value's current variant. It panics on a released
// value; use Released to check first when ownership is unclear.
func (v *Value) Type() Type {
	defer goruntime.KeepAlive(v)
	h, err := v.live()
	if err != nil {
		panic(err)
	}
	return v.rt.lib.ValueType(h)
}

// IsNull reports whether the value is null. Like Type it panics on a
// released value.
func (v *Value) IsNull() bool {
	return v.Type() == TypeNull
}

// expect checks the variant before reading it.
func (v *Value) expect(want Type) (native.Handle, error) {
	h, err := v.live()
	if err != nil {
		return 0, err
	}
	if got := v.rt.lib.ValueType(h); got != want {
		return 0, errors.TypeMismatch(want.String(), got.String())
	}
	return h, nil
}

// AsInt returns the integer. There is no coercion from float.
func (v *Value) AsInt() (int64, error) {
	defer goruntime.KeepAlive(v)
	h, err := v.expect(TypeInt)
	if err != nil {
		return 0, err
	}
	n, code := v.rt.lib.ValueInt(h)
	if code != native.OK {
		return 0, valueError(code, "int", v.rt.lib.ValueType(h))
	}
	return n, nil
}

// AsFloat returns the float. There is no coercion from int.
func (v *Value) AsFloat() (float64, error) {
	defer goruntime.KeepAlive(v)
	h, err := v.expect(TypeFloat)
	if err != nil {
		return 0, err
	}
	f, code := v.rt.lib.ValueFloat(h)
	if code != native.OK {
		return 0, valueError(code, "float", v.rt.lib.ValueType(h))
	}
	return f, nil
}

// AsString returns a Go copy of the string.
func (v *Value) AsString() (string, error) {
	defer goruntime.KeepAlive(v)
	h, err := v.expect(TypeString)
	if err != nil {
		return "", err
	}
	s, ok := v.rt.lib.ValueString(h)
	if !ok {
		return "", errors.TypeMismatch("string", v.rt.lib.ValueType(h).String())
	}
	return s, nil
}

// AsBool returns the boolean.
func (v *Value) AsBool() (bool, error) {
	defer goruntime.KeepAlive(v)
	h, err := v.expect(TypeBool)
	if err != nil {
		return false, err
	}
	b, code := v.rt.lib.ValueBool(h)
	if code != native.OK {
		return false, valueError(code, "bool", v.rt.lib.ValueType(h))
	}
	return b, nil
}

// String formats scalars by value; arrays and structs by type name.
func (v *Value) String() string {
	if v.Released() {
		return "<released>"
	}
	switch v.Type() {
	case TypeInt:
		if n, err := v.AsInt(); err == nil {
			return strconv.FormatInt(n, 10)
		}
	case TypeFloat:
		if f, err := v.AsFloat(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	case TypeString:
		if s, err := v.AsString(); err == nil {
			return s
		}
	case TypeBool:
		if b, err := v.AsBool(); err == nil {
			return strconv.FormatBool(b)
		}
	case TypeNull:
		return "null"
	}
	return v.Type().String()
}

// Close releases the value. Closing twice is a no-op.
func (v *Value) Close() error {
	if v.cell.release() {
		v.cleanup.Stop()
	}
	return nil
}

// close adapts Close for deferred cleanup with a context in scope.
func (v *Value) close(context.Context) {
	_ = v.Close()
}
