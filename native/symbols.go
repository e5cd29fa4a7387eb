package native

import "fmt"

// Exported C symbols of the Flow embedding API.
const (
	SymRuntimeNew      = "flow_runtime_new"
	SymRuntimeFree     = "flow_runtime_free"
	SymRuntimeGetError = "flow_runtime_get_error"

	SymModuleCompile     = "flow_module_compile"
	SymModuleLoadFile    = "flow_module_load_file"
	SymModuleFree        = "flow_module_free"
	SymModuleGetFunction = "flow_module_get_function"

	SymFunctionGetParamCount = "flow_function_get_param_count"
	SymFunctionCall          = "flow_function_call"
	SymCall                  = "flow_call"

	SymReflectFunctionCount    = "flow_reflect_function_count"
	SymReflectListFunctions    = "flow_reflect_list_functions"
	SymReflectFreeNames        = "flow_reflect_free_names"
	SymReflectGetFunctionInfo  = "flow_reflect_get_function_info"
	SymReflectFreeFunctionInfo = "flow_reflect_free_function_info"

	SymValueNewInt    = "flow_value_new_int"
	SymValueNewFloat  = "flow_value_new_float"
	SymValueNewString = "flow_value_new_string"
	SymValueNewBool   = "flow_value_new_bool"
	SymValueNewNull   = "flow_value_new_null"
	SymValueFree      = "flow_value_free"
	SymValueGetType   = "flow_value_get_type"
	SymValueGetInt    = "flow_value_get_int"
	SymValueGetFloat  = "flow_value_get_float"
	SymValueGetString = "flow_value_get_string"
	SymValueGetBool   = "flow_value_get_bool"
)

// Symbols lists every symbol a Library must resolve, in binding order.
var Symbols = []string{
	SymRuntimeNew, SymRuntimeFree, SymRuntimeGetError,
	SymModuleCompile, SymModuleLoadFile, SymModuleFree, SymModuleGetFunction,
	SymFunctionGetParamCount, SymFunctionCall, SymCall,
	SymReflectFunctionCount, SymReflectListFunctions, SymReflectFreeNames,
	SymReflectGetFunctionInfo, SymReflectFreeFunctionInfo,
	SymValueNewInt, SymValueNewFloat, SymValueNewString, SymValueNewBool, SymValueNewNull,
	SymValueFree, SymValueGetType,
	SymValueGetInt, SymValueGetFloat, SymValueGetString, SymValueGetBool,
}

// SharedLibraryName maps a logical name to the platform's shared library
// file name.
func SharedLibraryName(logical, goos string) (string, error) {
	switch goos {
	case "darwin":
		return fmt.Sprintf("lib%s.dylib", logical), nil
	case "linux", "freebsd":
		return fmt.Sprintf("lib%s.so", logical), nil
	case "windows":
		return fmt.Sprintf("%s.dll", logical), nil
	default:
		return "", fmt.Errorf("%s: %w", goos, ErrUnsupportedPlatform)
	}
}
