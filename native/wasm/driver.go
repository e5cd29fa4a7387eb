package wasm

import (
	"context"
	"fmt"
	"os"

	"github.com/wippyai/flowbind/native"
)

// DriverName is the registry name of the wasm driver.
const DriverName = "wasm"

// Driver loads <name>.wasm builds of the runtime.
type Driver struct {
	Config Config
}

var _ native.Driver = (*Driver)(nil)

// Default is the registered driver. Adjust Default.Config before the
// library is loaded to pick an engine mode or memory limit.
var Default = &Driver{}

func init() {
	native.Register(DriverName, Default)
}

// FileName is platform independent.
func (d *Driver) FileName(logical, goos string) (string, error) {
	return fmt.Sprintf("%s.wasm", logical), nil
}

// Open reads and instantiates the module at path. Unlike a shared library
// a bare file name is resolved against the working directory.
func (d *Driver) Open(ctx context.Context, path string) (native.Library, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(ctx, wasmBytes, d.Config)
}
