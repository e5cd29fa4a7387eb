package main

import (
	"strings"
	"testing"

	"github.com/wippyai/flowbind/runtime"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		value   string
		typ     string
		want    any
		wantErr bool
	}{
		{"42", "int", int64(42), false},
		{"-3", "int", int64(-3), false},
		{"4.5", "float", 4.5, false},
		{"7", "float", 7.0, false},
		{"true", "bool", true, false},
		{"0", "bool", false, false},
		{"hello world", "string", "hello world", false},
		{"x", "int", nil, true},
		{"1.5", "int", nil, true},
		{"maybe", "bool", nil, true},
		{"[1]", "[int]", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.value, func(t *testing.T) {
			got, err := parseArg(tt.value, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArg(%q, %s) error = %v, wantErr %v", tt.value, tt.typ, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseArg(%q, %s) = %#v, want %#v", tt.value, tt.typ, got, tt.want)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	info := &runtime.FunctionInfo{
		Name:       "scale",
		ReturnType: "float",
		Parameters: []runtime.ParameterInfo{{Name: "x", Type: "float"}, {Name: "n", Type: "int"}},
	}

	args, err := parseArgs(info, []string{"1.5", "2"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if args[0] != 1.5 || args[1] != int64(2) {
		t.Errorf("args = %#v", args)
	}

	if _, err := parseArgs(info, []string{"1"}); err == nil || !strings.Contains(err.Error(), "expects 2 argument(s)") {
		t.Errorf("arity error = %v", err)
	}
	if _, err := parseArgs(info, []string{"1", "two"}); err == nil || !strings.Contains(err.Error(), "argument n") {
		t.Errorf("parse error = %v", err)
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{int64(5), "5"},
		{2.5, "2.5"},
		{true, "true"},
		{"hi", `"hi"`},
	}
	for _, tt := range tests {
		if got := formatResult(tt.in); got != tt.want {
			t.Errorf("formatResult(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
