//go:build darwin || freebsd || linux

package dylib

import (
	"github.com/ebitengine/purego"
)

type dl struct {
	handle uintptr
}

func dlopen(path string) (*dl, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, err
	}
	return &dl{handle: h}, nil
}

func (d *dl) sym(name string) (uintptr, error) {
	return purego.Dlsym(d.handle, name)
}

func (d *dl) close() error {
	return purego.Dlclose(d.handle)
}
