package dylib

import (
	"context"

	"github.com/wippyai/flowbind/native"
)

// DriverName is the registry name of the shared library driver.
const DriverName = "dylib"

// Driver loads the Flow runtime as a platform shared library.
type Driver struct{}

var _ native.Driver = Driver{}

func init() {
	native.Register(DriverName, Driver{})
}

func (Driver) FileName(logical, goos string) (string, error) {
	return native.SharedLibraryName(logical, goos)
}

// Open loads the library at path and binds every Flow symbol. A library
// missing any symbol is closed again and reported as an error.
func (Driver) Open(ctx context.Context, path string) (native.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return open(path)
}
