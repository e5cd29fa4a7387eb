package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/flowbind/native/nativetest"
)

const calcSource = `
func add(a: int, b: int) -> int { return a + b; }
func greet(name: string) -> string { return "Hello, " + name; }
func divide(a: int, b: int) -> int { return a / b; }
`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calc.flow")
	if err := os.WriteFile(path, []byte(calcSource), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--driver", nativetest.DriverName, "--lib", "flowjni.flowlib"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInspectCommand(t *testing.T) {
	out, err := execute(t, "inspect", writeSource(t))
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	want := "Module contains 3 function(s):\n\n" +
		"  add(a: int, b: int) -> int\n" +
		"  greet(name: string) -> string\n" +
		"  divide(a: int, b: int) -> int\n"
	if out != want {
		t.Errorf("output =\n%q\nwant\n%q", out, want)
	}
}

func TestCallCommand(t *testing.T) {
	src := writeSource(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{"int", []string{"add", "2", "40"}, "42\n", ""},
		{"string", []string{"greet", "Flow"}, "\"Hello, Flow\"\n", ""},
		{"fault", []string{"divide", "1", "0"}, "", "Division by zero"},
		{"unknown", []string{"missing"}, "", "not_found"},
		{"bad arg", []string{"add", "x", "1"}, "", "not an int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"call", src}, tt.args...)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestDriversCommand(t *testing.T) {
	out, err := execute(t, "drivers")
	if err != nil {
		t.Fatalf("drivers failed: %v", err)
	}
	for _, want := range []string{"* dylib", "  test", "  wasm"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not list %q", out, want)
		}
	}
}

func TestInteractiveRequiresFile(t *testing.T) {
	if _, err := execute(t, "-i"); err == nil {
		t.Error("expected error without a file")
	}
}
