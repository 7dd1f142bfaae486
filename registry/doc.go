// Package registry keeps the ordered record of loaded libraries.
//
// Every successful Open appends a Record; records are never reordered,
// compacted or reused. Close turns the newest live record of a name into a
// tombstone in place, so lookups see the previous load of that name again:
//
//	reg := registry.New(loader.New(loader.Native()))
//	reg.Open("physicsPlugin", false) // h1
//	reg.Open("physicsPlugin", false) // h2
//	reg.Find("physicsPlugin")        // h2
//	reg.Close("physicsPlugin", true)
//	reg.Find("physicsPlugin")        // h1
//
// Teardown walks the records backwards and closes whatever is still live.
//
// Results distinguish three outcomes: nil, a not_found error (nothing was
// open under that name, nothing changed) and a close_failed error (the
// library was forgotten anyway and its unload leaked).
//
// A Tracker mirrors the live records of one or more registries as a handle
// to name index for diagnostics; Loaded lists names in load order.
package registry
