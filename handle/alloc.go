package handle

import (
	"unsafe"

	"github.com/moontrade/grip/pkg/spinlock"
)

// Heap is an Allocator backed by the Go heap. Every allocation is kept
// reachable until freed so the collector cannot reclaim it early. Alloc
// never fails. The zero value is ready to use.
//
// Like any Allocator, the backing memory is untyped: pointer fields
// stored in it are invisible to the collector, so it still only serves
// pointer-free types.
type Heap struct {
	mu   spinlock.Mutex
	live map[unsafe.Pointer][]byte
}

func (h *Heap) Alloc(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		size = 1
	}
	b := make([]byte, size)
	p := unsafe.Pointer(&b[0])
	h.mu.Lock()
	if h.live == nil {
		h.live = make(map[unsafe.Pointer][]byte)
	}
	h.live[p] = b
	h.mu.Unlock()
	return p, nil
}

func (h *Heap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	h.mu.Lock()
	delete(h.live, p)
	h.mu.Unlock()
}

// Live reports the number of allocations not yet freed.
func (h *Heap) Live() int {
	h.mu.Lock()
	n := len(h.live)
	h.mu.Unlock()
	return n
}
