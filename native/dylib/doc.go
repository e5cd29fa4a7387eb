// Package dylib loads the Flow runtime as a platform shared library
// (libflowjni.so, libflowjni.dylib, flowjni.dll) without cgo.
//
// Symbols are bound with purego on every supported platform. On Windows
// the library itself is opened through golang.org/x/sys/windows.
//
// Importing the package registers the "dylib" driver, which is also the
// default driver.
package dylib
