// Package errors provides structured error types for the object table.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The Error type carries the offending handle, the object type name, a detail
// message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLookup, errors.KindTypeMismatch).
//		Handle(uint32(h)).
//		TypeName("brush").
//		Detail("expected pen").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Exhausted("pen", 65536)
//	err := errors.InvalidHandle(errors.PhaseDelete, uint32(h))
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
