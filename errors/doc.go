// Package errors provides structured error types for the dynlib module.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The Error type carries the library name, symbol, slot index, the candidate paths
// that were tried and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseOpen, errors.KindLoadFailed).
//		Name("physicsPlugin").
//		Attempts("physicsPlugin.so", "libphysicsPlugin.so").
//		Detail("cannot open shared object file").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CloseFailed("physicsPlugin", cause)
//	err := errors.InvalidHandle(errors.PhaseUse, 3, "slot is empty")
//
// Kinds separate benign outcomes from report-worthy ones: KindNotFound means the thing
// never existed, KindCloseFailed means it existed but its release failed. Phase-agnostic
// sentinels such as ErrNotFound match any phase:
//
//	if errors.Is(err, dlerrors.ErrNotFound) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
