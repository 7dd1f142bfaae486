package loader

// Handle is an opaque token for one successful open. Handle 0 is the null handle.
// A closed handle stays invalid for the life of its Loader; handles from
// different Loaders may be equal.
type Handle uintptr

// Platform is the native dynamic loading primitive of one operating system.
type Platform interface {
	// Name identifies the platform in diagnostics.
	Name() string

	// Ext is the native shared library extension, including the dot.
	Ext() string

	// Open loads the library at path exactly as given.
	Open(path string) (Object, error)

	// LastError returns a snapshot of the most recent platform error text.
	LastError() string
}

// Object is a library opened by a Platform.
type Object interface {
	// Lookup returns the address of the named symbol.
	Lookup(symbol string) (uintptr, error)

	// Close releases the library from the process.
	Close() error
}
