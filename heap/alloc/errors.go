package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrHeapExhausted indicates that no free region, class block, or
	// fallback space was large enough for the request.
	ErrHeapExhausted = errors.New("alloc: no free region large enough")

	// ErrAddressOverflow indicates that the computed end address of the
	// request would wrap the address space. Detected before any memory is
	// touched, so nothing is corrupted.
	ErrAddressOverflow = errors.New("alloc: address computation overflows")

	// ErrUninitialized indicates an allocation attempt before Init bound a
	// heap region to the allocator.
	ErrUninitialized = errors.New("alloc: allocator not initialized")
)

// InvariantError is the panic payload raised when an allocator detects that
// its internal structure can no longer be trusted: a freed block whose
// layout cannot host a node, a misaligned or undersized free region, a
// deallocation with nothing outstanding, or a second Init. These indicate
// caller misuse (double free, wrong layout, heap corruption), not resource
// exhaustion, and execution must not continue — they are panics, never
// returned error values.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return "alloc: invariant violation in " + e.Op + ": " + e.Detail
}

// panicInvariant raises an InvariantError for the given operation.
func panicInvariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
