// Package errors provides structured error types for the Flow bindings.
//
// Errors are categorized by Phase (which boundary crossing failed) and Kind
// (error category). Native diagnostics, when the runtime reports one, are
// kept separate from locally constructed detail text.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindExecutionFault).
//		Entity("function").
//		Name("divide").
//		Native("division by zero").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseReflect, "function", "missing")
//	err := errors.TypeMismatch("int", "string")
//
// Sentinel values match on kind regardless of phase:
//
//	if stderrors.Is(err, errors.ErrNotFound) { ... }
//
// LibraryLoad and Allocation are unrecoverable: nothing above the binding
// can run without the library or without native memory. UseAfterRelease
// reports a caller bug and is not meant to be retried.
package errors
