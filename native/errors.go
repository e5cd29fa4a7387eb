package native

import "errors"

// Errors shared by driver implementations
var (
	ErrDriverNotFound      = errors.New("driver not found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrSymbolNotFound      = errors.New("symbol not exported")
	ErrLibraryClosed       = errors.New("library closed")
)
