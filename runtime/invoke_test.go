package runtime

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/flowbind/errors"
)

func TestModule_Invoke(t *testing.T) {
	rt, lib := newTestRuntime(t)
	m := compileMath(t, rt)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"int", "add", []any{2, int64(3)}, int64(5)},
		{"int32", "add", []any{int32(-1), 1}, int64(0)},
		{"float widened", "half", []any{5}, 2.5},
		{"float32", "half", []any{float32(1)}, 0.5},
		{"string", "greet", []any{"Go"}, "Hello, Go"},
		{"bool", "is_even", []any{7}, false},
		{"void", "nothing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Invoke(ctx, nil, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("Invoke failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Invoke(%s) = %#v, want %#v", tt.fn, got, tt.want)
			}
		})
	}

	if n := rt.Outstanding(); n != 1 {
		t.Errorf("Outstanding = %d, want only the module", n)
	}
	if s := lib.Stats(); s.Values != 0 {
		t.Errorf("temporaries leaked: %+v", s)
	}
}

func TestModule_InvokeErrors(t *testing.T) {
	rt, lib := newTestRuntime(t)
	m := compileMath(t, rt)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   string
		args []any
		want error
	}{
		{"unsupported type", "add", []any{1, []int{2}}, errors.ErrInvalidInput},
		{"value argument", "add", []any{1, &Value{}}, errors.ErrInvalidInput},
		{"fault", "divide", []any{1, 0}, errors.ErrExecutionFault},
		{"not found", "missing", nil, errors.ErrNotFound},
		{"array result", "pair", nil, errors.ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Invoke(ctx, nil, tt.fn, tt.args...); !stderrors.Is(err, tt.want) {
				t.Errorf("Invoke(%s) = %v, want %v", tt.fn, err, tt.want)
			}
		})
	}

	if s := lib.Stats(); s.Values != 0 {
		t.Errorf("temporaries leaked on error paths: %+v", s)
	}
}
