package wasm

// Mode selects the wazero execution engine.
type Mode string

const (
	ModeCompiler    Mode = "compiler"
	ModeInterpreter Mode = "interpreter"
)

// Config holds configuration for loading a wasm build of the runtime.
type Config struct {
	// Mode selects compiler or interpreter. Empty uses the compiler where
	// the platform supports it.
	Mode Mode

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}
