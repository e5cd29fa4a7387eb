package runtime

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/flowbind/errors"
)

func TestDecodeInfo(t *testing.T) {
	tests := []struct {
		name    string
		flat    []string
		want    string
		params  int
		wantErr bool
	}{
		{"no params", []string{"hello", "string"}, "hello() -> string", 0, false},
		{"two params", []string{"add", "int", "a", "int", "b", "int"}, "add(a: int, b: int) -> int", 2, false},
		{"array param", []string{"sum", "int", "xs", "[int]"}, "sum(xs: [int]) -> int", 1, false},
		{"empty", nil, "", 0, true},
		{"short", []string{"f"}, "", 0, true},
		{"odd", []string{"f", "int", "a"}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := decodeInfo(tt.flat)
			if tt.wantErr {
				if !stderrors.Is(err, errors.ErrInvalidData) {
					t.Fatalf("error = %v, want ErrInvalidData", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeInfo failed: %v", err)
			}
			if got := info.Signature(); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
			if info.ParamCount() != tt.params {
				t.Errorf("ParamCount() = %d, want %d", info.ParamCount(), tt.params)
			}
			if info.String() != info.Signature() {
				t.Error("String() differs from Signature()")
			}
		})
	}
}
