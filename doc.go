// Package dynlib loads native shared libraries by name and keeps an ordered
// record of them, together with index-addressed tables of threads and
// mutexes.
//
// The library is organized into several packages with distinct responsibilities:
//
//	dynlib/            Root package with the Context tying everything together
//	├── loader/        Name resolution and the native, wasm and fake platforms
//	├── registry/      Ordered library records, teardown and the tracker
//	├── resource/      Index-addressed handle tables, threads and mutexes
//	├── config/        TOML configuration and logger construction
//	├── errors/        Structured error types for debugging
//	└── cmd/dlreg/     Command line and interactive front end
//
// # Quick Start
//
//	dl, err := dynlib.New()
//	if err != nil {
//	    return err
//	}
//	defer dl.Close()
//
//	// Tries physicsPlugin.so, libphysicsPlugin.so and physicsPlugin
//	if err := dl.Libraries().Open("physicsPlugin", true); err != nil {
//	    return err
//	}
//
//	h, _ := dl.Libraries().Find("physicsPlugin")
//	if dl.Loader().SymbolExists(h, "plugin_init") {
//	    addr, _ := dl.Loader().Symbol(h, "plugin_init")
//	    // call addr through purego or cgo
//	}
//
// # Load Order
//
// Records are appended in load order and never removed. Closing a library
// leaves a tombstone in place, and Close tears every registry down in reverse
// load order so that dependents are released before their dependencies.
//
// # Portable Plugins
//
// The wasm backend loads WebAssembly modules through wazero instead of the
// operating system loader:
//
//	wp, _ := loader.NewWasm(ctx)
//	dl, _ := dynlib.New(dynlib.WithPlatform(wp))
//	defer dl.Close() // also closes the wazero runtime
//
// # Concurrency
//
// Nothing in this module locks internally. A Context and everything it hands
// out must be driven from one goroutine at a time, typically during process
// startup and shutdown.
package dynlib
