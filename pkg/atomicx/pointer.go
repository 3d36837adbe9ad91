package atomicx

import (
	"sync/atomic"
	"unsafe"
)

// Pointer is an atomic unsafe.Pointer with a typed API. The zero value
// holds nil. Not copyable after first use.
type Pointer[T any] struct {
	noCopy noCopy
	v      unsafe.Pointer
}

func (p *Pointer[T]) Load() *T {
	return (*T)(atomic.LoadPointer(&p.v))
}

func (p *Pointer[T]) Store(v *T) {
	atomic.StorePointer(&p.v, unsafe.Pointer(v))
}

func (p *Pointer[T]) Swap(v *T) *T {
	return (*T)(atomic.SwapPointer(&p.v, unsafe.Pointer(v)))
}

func (p *Pointer[T]) CompareAndSwap(old, new *T) bool {
	return atomic.CompareAndSwapPointer(&p.v, unsafe.Pointer(old), unsafe.Pointer(new))
}
