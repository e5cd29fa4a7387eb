package main

import (
	"fmt"
	"strconv"

	"github.com/wippyai/flowbind/runtime"
)

// parseArg converts command line text to the Go value for a declared
// Flow parameter type.
func parseArg(value, typ string) (any, error) {
	switch typ {
	case "int":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an int", value)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a float", value)
		}
		return v, nil
	case "bool":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a bool", value)
		}
		return v, nil
	case "string":
		return value, nil
	default:
		return nil, fmt.Errorf("parameters of type %s cannot be passed from the command line", typ)
	}
}

func parseArgs(info *runtime.FunctionInfo, values []string) ([]any, error) {
	if len(values) != info.ParamCount() {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", info.Signature(), info.ParamCount(), len(values))
	}
	args := make([]any, len(values))
	for i, p := range info.Parameters {
		v, err := parseArg(values[i], p.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func formatResult(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprint(x)
	}
}
