// Package handle provides explicit ownership handles over dynamically
// managed resources: Unique for single ownership with move semantics,
// Shared for reference-counted ownership and Weak for non-owning
// observers that can be promoted while the resource is still alive.
//
// Blocks and counts are safe for concurrent use through distinct
// handles. A single handle instance is single-writer: transferring or
// releasing the same instance from two goroutines is a caller error and
// panics in the common case. Misuse (double release, use after release,
// count underflow) panics rather than corrupting counts; expected
// failures (upgrading an expired observer, allocation) are values.
package handle

import (
	"errors"
	"unsafe"
)

var (
	// ErrAllocFailed wraps the cause of a failed resource allocation.
	ErrAllocFailed = errors.New("allocation failed")
	// ErrHasPointers rejects pointer-containing types from allocators
	// whose memory the garbage collector does not scan.
	ErrHasPointers = errors.New("type contains pointers")
	// ErrNilValue reports an allocator that returned no memory and no error.
	ErrNilValue = errors.New("nil value")
)

// Executor runs disposers away from the releasing goroutine. Submit
// either runs fn eventually or returns an error; callers fall back to
// running fn inline when Submit fails, so a disposer is never lost.
type Executor interface {
	Submit(fn func()) error
}

// Allocator supplies raw memory for factory-allocated resources.
// Implementations hand out memory the garbage collector does not scan,
// so resource types placed in them must be pointer-free.
type Allocator interface {
	Alloc(size uintptr) (unsafe.Pointer, error)
	Free(ptr unsafe.Pointer)
}
