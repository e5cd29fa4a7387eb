package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which boundary crossing produced the error
type Phase string

const (
	PhaseLoad    Phase = "load"    // native library discovery
	PhaseCreate  Phase = "create"  // runtime context allocation
	PhaseCompile Phase = "compile" // source compilation and file loading
	PhaseCall    Phase = "call"    // function invocation
	PhaseReflect Phase = "reflect" // module introspection
	PhaseValue   Phase = "value"   // value construction and extraction
	PhaseRelease Phase = "release" // handle release
)

// Kind categorizes the error
type Kind string

const (
	KindLibraryLoad     Kind = "library_load"
	KindRuntimeCreation Kind = "runtime_creation"
	KindCompilation     Kind = "compilation"
	KindExecutionFault  Kind = "execution_fault"
	KindNotFound        Kind = "not_found"
	KindTypeMismatch    Kind = "type_mismatch"
	KindUseAfterRelease Kind = "use_after_release"
	KindAllocation      Kind = "allocation"
	KindIO              Kind = "io"
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidData     Kind = "invalid_data"
)

// Sentinel targets for errors.Is. They match any phase.
var (
	ErrLibraryLoad     = &Error{Kind: KindLibraryLoad}
	ErrRuntimeCreation = &Error{Kind: KindRuntimeCreation}
	ErrCompilation     = &Error{Kind: KindCompilation}
	ErrExecutionFault  = &Error{Kind: KindExecutionFault}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrTypeMismatch    = &Error{Kind: KindTypeMismatch}
	ErrReleased        = &Error{Kind: KindUseAfterRelease}
	ErrAllocation      = &Error{Kind: KindAllocation}
	ErrIO              = &Error{Kind: KindIO}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrInvalidData     = &Error{Kind: KindInvalidData}
)

// Error is the structured error type returned at every native boundary
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Entity string // "runtime", "module", "value", "function"
	Name   string // module or function name when known
	Detail string
	// Native holds the diagnostic reported by the native side, if any.
	Native string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
		if e.Name != "" {
			b.WriteString(" ")
			b.WriteString(fmt.Sprintf("%q", e.Name))
		}
	} else if e.Name != "" {
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%q", e.Name))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Native != "" {
		if e.Detail != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Native)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Message returns the most specific human-readable text: the native
// diagnostic when present, otherwise the local detail.
func (e *Error) Message() string {
	if e.Native != "" {
		return e.Native
	}
	return e.Detail
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Entity sets the kind of handle involved
func (b *Builder) Entity(entity string) *Builder {
	b.err.Entity = entity
	return b
}

// Name sets the module or function name
func (b *Builder) Name(name string) *Builder {
	b.err.Name = name
	return b
}

// Native sets the native diagnostic text
func (b *Builder) Native(msg string) *Builder {
	b.err.Native = msg
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the binding's error taxonomy

// LibraryLoad creates a library load error. The cause usually aggregates
// every strategy's failure.
func LibraryLoad(library string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibraryLoad,
		Name:   library,
		Detail: "no loading strategy succeeded",
		Cause:  cause,
	}
}

// RuntimeCreation creates an error for a native context allocation failure
func RuntimeCreation(native string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindRuntimeCreation,
		Entity: "runtime",
		Detail: "native runtime returned an invalid handle",
		Native: native,
	}
}

// Compilation creates a compilation error carrying the native diagnostic
func Compilation(module, native string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompilation,
		Entity: "module",
		Name:   module,
		Native: fallback(native, "compilation failed"),
	}
}

// ExecutionFault creates an execution fault error carrying the native diagnostic
func ExecutionFault(function, native string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindExecutionFault,
		Entity: "function",
		Name:   function,
		Native: fallback(native, "function call failed"),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Entity: what,
		Name:   name,
		Detail: "not declared in module",
	}
}

// TypeMismatch creates a type mismatch error for a value accessor
func TypeMismatch(want, got string) *Error {
	return &Error{
		Phase:  PhaseValue,
		Kind:   KindTypeMismatch,
		Entity: "value",
		Detail: fmt.Sprintf("expected %s, value holds %s", want, got),
	}
}

// UseAfterRelease creates an error for an operation on a released handle
func UseAfterRelease(phase Phase, entity string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUseAfterRelease,
		Entity: entity,
		Detail: "handle has been released",
	}
}

// Allocation creates an error for a native allocator failure
func Allocation(phase Phase, entity string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Entity: entity,
		Detail: "native allocator returned an invalid handle",
	}
}

// IO creates an I/O error for an unreadable path
func IO(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindIO,
		Name:   path,
		Detail: "path is not readable",
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an error for a malformed native reply
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
