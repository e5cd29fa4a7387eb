package runtime

import (
	"context"
	"fmt"

	"github.com/wippyai/flowbind/errors"
)

// Invoke calls the named function with plain Go arguments. Supported
// argument types are int, int32, int64, float32, float64, string, bool
// and nil. The result comes back as int64, float64, string, bool or nil.
// Every temporary value is released before Invoke returns.
func (m *Module) Invoke(ctx context.Context, rt *Runtime, name string, args ...any) (any, error) {
	if rt == nil {
		rt = m.rt
	}

	vals := make([]*Value, 0, len(args))
	defer func() {
		for _, v := range vals {
			v.close(ctx)
		}
	}()

	for i, a := range args {
		v, err := rt.marshal(a)
		if err != nil {
			if e, ok := err.(*errors.Error); ok && e.Kind == errors.KindInvalidInput {
				e.Detail = fmt.Sprintf("argument %d: %s", i, e.Detail)
			}
			return nil, err
		}
		vals = append(vals, v)
	}

	out, err := m.Call(ctx, rt, name, vals...)
	if err != nil {
		return nil, err
	}
	defer out.close(ctx)

	return unmarshal(out)
}

func (r *Runtime) marshal(a any) (*Value, error) {
	switch x := a.(type) {
	case nil:
		return r.NewNull()
	case int:
		return r.NewInt(int64(x))
	case int32:
		return r.NewInt(int64(x))
	case int64:
		return r.NewInt(x)
	case float32:
		return r.NewFloat(float64(x))
	case float64:
		return r.NewFloat(x)
	case string:
		return r.NewString(x)
	case bool:
		return r.NewBool(x)
	case *Value:
		return nil, errors.InvalidInput(errors.PhaseCall, "pass *Value arguments to Call")
	default:
		return nil, errors.InvalidInput(errors.PhaseCall, fmt.Sprintf("unsupported type %T", a))
	}
}

func unmarshal(v *Value) (any, error) {
	switch t := v.Type(); t {
	case TypeInt:
		return v.AsInt()
	case TypeFloat:
		return v.AsFloat()
	case TypeString:
		return v.AsString()
	case TypeBool:
		return v.AsBool()
	case TypeNull:
		return nil, nil
	default:
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidData).
			Entity("value").
			Detail("cannot convert %s result", t).
			Build()
	}
}
