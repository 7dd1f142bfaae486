// Package loader opens native shared libraries behind one platform-neutral contract.
//
// A Platform is the raw OS primitive, selected at build time:
//
//	posix    purego Dlopen/Dlsym/Dlclose (darwin, freebsd, linux, netbsd)
//	windows  LoadLibrary/GetProcAddress/FreeLibrary (golang.org/x/sys/windows)
//	wasm     WebAssembly modules on wazero, usable on every GOOS
//
// The Loader is written once on top of a Platform and owns the naming rules.
// For a name such as "physicsPlugin" it tries, in order:
//
//	<dir>/physicsPlugin.so      for every directory in $DYNLIB_PATH
//	<dir>/libphysicsPlugin.so
//	<dir>/physicsPlugin
//	physicsPlugin.so            platform default search
//	libphysicsPlugin.so
//	physicsPlugin
//
// A trailing ".so" is swapped for the native extension (".dll", ".dylib",
// ".wasm"), and versioned names such as "libc.so.6" are used unchanged.
//
// # Handles
//
// Each successful Open yields a fresh Handle backed by one platform reference,
// even when the OS reference-counts the same file:
//
//	ld := loader.New(loader.Native())
//	h, err := ld.Open("physicsPlugin", true)
//	if err != nil {
//	    // load_failed: expected when an optional plugin is absent
//	}
//	defer ld.Close(h)
//
//	if ld.SymbolExists(h, "plugin_optional_hook") {
//	    addr, _ := ld.Symbol(h, "plugin_optional_hook")
//	    ...
//	}
//
// Symbol logs a warning on a miss; SymbolExists never logs.
//
// A Loader has no internal locking.
package loader
