package flowbind

// Version is the release of the Go bindings.
const Version = "0.3.0"
