package handle

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/moontrade/grip/pkg/counter"
	"github.com/moontrade/grip/pkg/pmath"
	"github.com/moontrade/grip/pkg/spinlock"
	"github.com/moontrade/grip/trace"
	"golang.org/x/sys/cpu"
)

// Config configures a Factory.
type Config[T any] struct {
	// Name labels the factory in stats and trace reports.
	Name string
	// Dispose runs exactly once per resource when its last owner
	// releases. Nil means no cleanup.
	Dispose func(*T)
	// Alloc supplies resource memory for New. Nil means the Go heap
	// via new(T). Allocator-backed resources must be pointer-free.
	Alloc Allocator
	// Reclaim runs disposers asynchronously. Nil means inline.
	Reclaim Executor
	// Recycle keeps freed control blocks on sharded free lists.
	Recycle bool
	// NumShards is rounded up to a power of two. Defaults to GOMAXPROCS.
	NumShards int
	// Track registers handles with the trace registry when tracing is
	// enabled.
	Track bool
	// Profile measures disposer durations into Stats.DisposeDur.
	Profile bool
}

func (c Config[T]) defaults() Config[T] {
	if c.Name == "" {
		c.Name = "handle.Factory"
	}
	if c.NumShards <= 0 {
		c.NumShards = runtime.GOMAXPROCS(0)
	}
	c.NumShards = pmath.CeilToPowerOf2(c.NumShards)
	return c
}

// Stats counts factory activity.
type Stats struct {
	Allocs     counter.Counter // fresh control blocks
	Recycles   counter.Counter // blocks reused from a free list
	Destroys   counter.Counter // resources destroyed
	Frees      counter.Counter // blocks freed
	DisposeDur counter.TimeCounter
}

// Factory builds handles that share a disposer, an allocator and a
// reclaim executor, and optionally recycles control blocks through
// sharded free lists instead of allocating one per resource.
type Factory[T any] struct {
	cfg    Config[T]
	shards []factoryShard[T]
	mask   uint32
	stats  Stats
}

type factoryShard[T any] struct {
	mu   spinlock.Mutex
	free []*control[T]
	_    cpu.CacheLinePad
}

func NewFactory[T any](cfg Config[T]) *Factory[T] {
	cfg = cfg.defaults()
	f := &Factory[T]{cfg: cfg}
	if cfg.Recycle {
		f.shards = make([]factoryShard[T], cfg.NumShards)
		f.mask = uint32(cfg.NumShards - 1)
	}
	return f
}

func (f *Factory[T]) Name() string  { return f.cfg.Name }
func (f *Factory[T]) Stats() *Stats { return &f.stats }

// Shared wraps v in a reference-counted handle owned by this factory.
func (f *Factory[T]) Shared(v *T) *Shared[T] {
	c := f.acquire()
	c.init(v, f.cfg.Dispose)
	c.exec = f.cfg.Reclaim
	c.fac = f
	if f.cfg.Track && trace.Enabled() {
		c.site = trace.Site(1)
		trace.Track(c.site)
	}
	return &Shared[T]{ctl: c, gen: c.gen.Load()}
}

// Unique wraps v in a single-owner handle using the factory's disposer
// and reclaim executor. Unique handles never touch the block pool.
func (f *Factory[T]) Unique(v *T) *Unique[T] {
	u := &Unique[T]{v: v, dispose: f.cfg.Dispose, exec: f.cfg.Reclaim}
	if v != nil && f.cfg.Track && trace.Enabled() {
		u.site = trace.Site(1)
		trace.Track(u.site)
	}
	return u
}

// New allocates the resource itself through the configured Allocator,
// zeroes it and wraps it in a Shared handle. It fails when T contains
// pointers or the allocator fails; no control block exists after a
// failure. The allocation is freed right after the disposer runs.
func (f *Factory[T]) New() (*Shared[T], error) {
	var (
		v   *T
		raw unsafe.Pointer
		a   = f.cfg.Alloc
	)
	if a == nil {
		v = new(T)
	} else {
		if ptrdataOf[T]() != 0 {
			return nil, ErrHasPointers
		}
		p, err := a.Alloc(sizeOf[T]())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAllocFailed, err)
		}
		if p == nil {
			return nil, ErrNilValue
		}
		raw = p
		v = (*T)(p)
		var zero T
		*v = zero
	}
	c := f.acquire()
	c.init(v, f.cfg.Dispose)
	c.exec = f.cfg.Reclaim
	c.alloc = a
	c.raw = raw
	c.fac = f
	if f.cfg.Track && trace.Enabled() {
		c.site = trace.Site(1)
		trace.Track(c.site)
	}
	return &Shared[T]{ctl: c, gen: c.gen.Load()}, nil
}

func (f *Factory[T]) acquire() *control[T] {
	if len(f.shards) > 0 {
		s := &f.shards[fastrand.Uint32()&f.mask]
		s.mu.Lock()
		if n := len(s.free); n > 0 {
			c := s.free[n-1]
			s.free[n-1] = nil
			s.free = s.free[:n-1]
			s.mu.Unlock()
			f.stats.Recycles.Incr()
			return c
		}
		s.mu.Unlock()
	}
	f.stats.Allocs.Incr()
	return &control[T]{}
}

// recycle returns a freed block to a shard. The generation bump fences
// off any stale handle still pointing at the block.
func (f *Factory[T]) recycle(c *control[T]) {
	if len(f.shards) == 0 {
		return
	}
	c.gen.Incr()
	c.dispose = nil
	c.exec = nil
	c.alloc = nil
	c.raw = nil
	s := &f.shards[fastrand.Uint32()&f.mask]
	s.mu.Lock()
	s.free = append(s.free, c)
	s.mu.Unlock()
}
