package nativetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wippyai/flowbind/native"
)

// DriverName is the name the shared test driver registers under.
const DriverName = "test"

// Driver opens in-process Libraries. It accepts any path unless Accept
// says otherwise and records every attempt.
type Driver struct {
	// Accept decides whether a path opens. Nil accepts everything.
	Accept func(path string) error

	mu       sync.Mutex
	attempts []string
	opened   []*Library
}

var _ native.Driver = (*Driver)(nil)

// Shared is the driver registered as "test".
var Shared = &Driver{}

func init() {
	native.Register(DriverName, Shared)
}

// FileName maps a logical name to "<name>.flowlib" on every platform.
func (d *Driver) FileName(logical, goos string) (string, error) {
	return logical + ".flowlib", nil
}

func (d *Driver) Open(ctx context.Context, path string) (native.Library, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts = append(d.attempts, path)
	if d.Accept != nil {
		if err := d.Accept(path); err != nil {
			return nil, err
		}
	}
	lib := NewLibrary()
	d.opened = append(d.opened, lib)
	return lib, nil
}

// Attempts returns every path passed to Open, in order.
func (d *Driver) Attempts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.attempts...)
}

// Opened returns the libraries Open produced.
func (d *Driver) Opened() []*Library {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Library(nil), d.opened...)
}

// AcceptSuffix returns an Accept hook that only opens paths ending in suffix.
func AcceptSuffix(suffix string) func(string) error {
	return func(path string) error {
		if strings.HasSuffix(path, suffix) {
			return nil
		}
		return fmt.Errorf("cannot open %s: no such file", path)
	}
}
