//go:build windows

package dylib

import (
	"golang.org/x/sys/windows"
)

type dl struct {
	handle windows.Handle
}

func dlopen(path string) (*dl, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, err
	}
	return &dl{handle: h}, nil
}

func (d *dl) sym(name string) (uintptr, error) {
	return windows.GetProcAddress(d.handle, name)
}

func (d *dl) close() error {
	return windows.FreeLibrary(d.handle)
}
