package arena

import (
	"unsafe"

	"github.com/moontrade/grip/handle"
	"github.com/moontrade/unsafe/memory"
)

var _ handle.Allocator = (*Malloc)(nil)

// Malloc allocates variable-size blocks from the process heap through
// moontrade/unsafe. Allocations are zeroed. The zero value is ready to
// use; there is nothing to close.
type Malloc struct {
	stats Stats
}

func (m *Malloc) Stats() *Stats { return &m.stats }

func (m *Malloc) Live() int64 {
	return m.stats.Allocs.Load() - m.stats.Frees.Load()
}

func (m *Malloc) Alloc(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		size = 1
	}
	p := memory.Alloc(size)
	if p == 0 {
		return nil, ErrOutOfMemory
	}
	memory.Zero(unsafe.Pointer(p), size)
	m.stats.Allocs.Incr()
	return unsafe.Pointer(p), nil
}

func (m *Malloc) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	memory.Free(memory.Pointer(p))
	m.stats.Frees.Incr()
}
