//go:build !(darwin || freebsd || linux || windows)

package dylib

import (
	"fmt"
	"runtime"

	"github.com/wippyai/flowbind/native"
)

func open(path string) (native.Library, error) {
	return nil, fmt.Errorf("dylib on %s: %w", runtime.GOOS, native.ErrUnsupportedPlatform)
}
