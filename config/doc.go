// Package config reads the TOML file that drives a dynlib context.
//
// A file selects the loader backend and its search path, configures
// logging, and names lists of libraries to load together:
//
//	[loader]
//	backend = "native"
//	search_env = "DYNLIB_PATH"
//	search_dirs = ["./plugins"]
//
//	[loader.wasm]
//	wasi = true
//	memory_limit_pages = 256
//
//	[log]
//	level = "info"
//
//	[libraries]
//	libs = ["physicsPlugin", "$PLUGIN_DIR/libturbulence.so"]
//
// Unknown keys are rejected. Library names are expanded against the
// environment when an entry is read, not when the file is parsed.
package config
