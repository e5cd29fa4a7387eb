// Package nativetest provides an in-process Flow runtime for tests.
//
// The Library type implements native.Library with a small interpreter for
// the subset of Flow the binding's tests need: functions with typed
// parameters, let bindings, if/else, while, arithmetic, comparison, string
// concatenation and array literals. It reports the same diagnostics as the
// real runtime ("Function not found: add", "Division by zero") and tracks
// every handle so tests can assert there are no leaks and no double frees.
//
// Importing the package registers the "test" driver.
package nativetest
