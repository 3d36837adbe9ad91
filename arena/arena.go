// Package arena provides off-heap allocators satisfying
// handle.Allocator: a fixed-slot slab arena over anonymous mmap and a
// malloc-style allocator over the process heap. Memory from either is
// invisible to the garbage collector, so only pointer-free types belong
// in it.
package arena

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/moontrade/grip/handle"
	"github.com/moontrade/grip/pkg/counter"
	"github.com/moontrade/grip/pkg/pmath"
	"github.com/moontrade/grip/pkg/spinlock"
	"golang.org/x/sys/cpu"
)

var (
	ErrClosed      = errors.New("closed")
	ErrExhausted   = errors.New("exhausted")
	ErrSizeLimit   = errors.New("size exceeds slot size")
	ErrLive        = errors.New("live allocations remain")
	ErrOutOfMemory = errors.New("out of memory")
)

var _ handle.Allocator = (*Arena)(nil)

// Config configures an Arena.
type Config struct {
	// SlotSize is the fixed allocation size served by the arena,
	// rounded up to a power of two. Default 64.
	SlotSize int
	// SlabSize is the size of each mapped slab, rounded up to a power
	// of two and at least one page and one slot. Default 64 KiB.
	SlabSize int
	// MaxSlabs caps the arena. Zero means grow without bound; with a
	// cap, Alloc fails with ErrExhausted once every slot is taken.
	MaxSlabs int
	// NumShards is rounded up to a power of two. Defaults to GOMAXPROCS.
	NumShards int
}

func (c Config) defaults() Config {
	if c.SlotSize <= 0 {
		c.SlotSize = 64
	}
	c.SlotSize = pmath.CeilToPowerOf2(c.SlotSize)
	if c.SlabSize <= 0 {
		c.SlabSize = 64 << 10
	}
	c.SlabSize = pmath.CeilToPowerOf2(c.SlabSize)
	if page := os.Getpagesize(); c.SlabSize < page {
		c.SlabSize = page
	}
	if c.SlabSize < c.SlotSize {
		c.SlabSize = c.SlotSize
	}
	if c.NumShards <= 0 {
		c.NumShards = runtime.GOMAXPROCS(0)
	}
	c.NumShards = pmath.CeilToPowerOf2(c.NumShards)
	return c
}

// Stats counts arena activity.
type Stats struct {
	Slabs  counter.Counter
	Allocs counter.Counter
	Frees  counter.Counter
}

// Arena is a fixed-slot slab allocator over anonymous mmap. Slots are
// kept on sharded free lists; an empty arena maps another slab, up to
// MaxSlabs. Free returns a slot for reuse without unmapping anything;
// Close unmaps every slab and fails while allocations are live.
type Arena struct {
	cfg    Config
	shards []arenaShard
	mask   uint32
	grow   spinlock.Mutex
	slabs  [][]byte
	closed int32
	stats  Stats
}

type arenaShard struct {
	mu   spinlock.Mutex
	free []unsafe.Pointer
	_    cpu.CacheLinePad
}

func New(cfg Config) *Arena {
	cfg = cfg.defaults()
	return &Arena{
		cfg:    cfg,
		shards: make([]arenaShard, cfg.NumShards),
		mask:   uint32(cfg.NumShards - 1),
	}
}

func (a *Arena) Stats() *Stats { return &a.stats }

// Live reports slots handed out and not yet freed.
func (a *Arena) Live() int64 {
	return a.stats.Allocs.Load() - a.stats.Frees.Load()
}

// Alloc hands out one slot. size must fit the configured slot size.
func (a *Arena) Alloc(size uintptr) (unsafe.Pointer, error) {
	if atomic.LoadInt32(&a.closed) != 0 {
		return nil, ErrClosed
	}
	if int(size) > a.cfg.SlotSize {
		return nil, ErrSizeLimit
	}
	i := fastrand.Uint32() & a.mask
	for {
		for j := uint32(0); j <= a.mask; j++ {
			s := &a.shards[(i+j)&a.mask]
			s.mu.Lock()
			if n := len(s.free); n > 0 {
				p := s.free[n-1]
				s.free[n-1] = nil
				s.free = s.free[:n-1]
				s.mu.Unlock()
				a.stats.Allocs.Incr()
				return p, nil
			}
			s.mu.Unlock()
		}
		if err := a.growArena(); err != nil {
			return nil, err
		}
	}
}

// Free returns a slot to the arena. p must come from Alloc.
func (a *Arena) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	s := &a.shards[fastrand.Uint32()&a.mask]
	s.mu.Lock()
	s.free = append(s.free, p)
	s.mu.Unlock()
	a.stats.Frees.Incr()
}

// growArena maps one more slab and spreads its slots over the shards.
// Two racing growers may both map; the cap still holds.
func (a *Arena) growArena() error {
	a.grow.Lock()
	defer a.grow.Unlock()
	if atomic.LoadInt32(&a.closed) != 0 {
		return ErrClosed
	}
	if a.cfg.MaxSlabs > 0 && len(a.slabs) >= a.cfg.MaxSlabs {
		return ErrExhausted
	}
	b, err := mapSlab(a.cfg.SlabSize)
	if err != nil {
		return fmt.Errorf("mmap slab of %d bytes: %w", a.cfg.SlabSize, err)
	}
	a.slabs = append(a.slabs, b)
	a.stats.Slabs.Incr()
	slot := a.cfg.SlotSize
	n := 0
	for off := 0; off+slot <= len(b); off += slot {
		s := &a.shards[uint32(n)&a.mask]
		s.mu.Lock()
		s.free = append(s.free, unsafe.Pointer(&b[off]))
		s.mu.Unlock()
		n++
	}
	return nil
}

// Close unmaps every slab. It fails with ErrLive while allocations are
// outstanding and with ErrClosed when already closed.
func (a *Arena) Close() error {
	if a.Live() > 0 {
		return ErrLive
	}
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return ErrClosed
	}
	a.grow.Lock()
	defer a.grow.Unlock()
	for i := range a.shards {
		s := &a.shards[i]
		s.mu.Lock()
		s.free = nil
		s.mu.Unlock()
	}
	var first error
	for _, b := range a.slabs {
		if err := unmapSlab(b); err != nil && first == nil {
			first = err
		}
	}
	a.slabs = nil
	return first
}
