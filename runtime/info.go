package runtime

import (
	"fmt"
	"strings"

	"github.com/wippyai/flowbind/errors"
)

// ParameterInfo describes one declared parameter.
type ParameterInfo struct {
	Name string
	Type string
}

// FunctionInfo is a function signature decoded from module reflection.
type FunctionInfo struct {
	Name       string
	ReturnType string
	Parameters []ParameterInfo
}

// ParamCount returns the number of declared parameters.
func (f *FunctionInfo) ParamCount() int {
	return len(f.Parameters)
}

// Signature renders the function as name(a: int, b: int) -> int.
func (f *FunctionInfo) Signature() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.Name + ": " + p.Type
	}
	return fmt.Sprintf("%s(%s) -> %s", f.Name, strings.Join(params, ", "), f.ReturnType)
}

func (f *FunctionInfo) String() string {
	return f.Signature()
}

// decodeInfo decodes the flat reflection reply
// [name, returnType, (paramName, paramType)*].
func decodeInfo(flat []string) (*FunctionInfo, error) {
	if len(flat) < 2 {
		return nil, errors.InvalidData(errors.PhaseReflect,
			fmt.Sprintf("function info has %d field(s), want at least 2", len(flat)))
	}
	if len(flat)%2 != 0 {
		return nil, errors.InvalidData(errors.PhaseReflect,
			fmt.Sprintf("function info has odd field count %d", len(flat)))
	}

	info := &FunctionInfo{
		Name:       flat[0],
		ReturnType: flat[1],
		Parameters: make([]ParameterInfo, 0, (len(flat)-2)/2),
	}
	for i := 2; i < len(flat); i += 2 {
		info.Parameters = append(info.Parameters, ParameterInfo{Name: flat[i], Type: flat[i+1]})
	}
	return info, nil
}
