package handle

import (
	"strconv"
	"unsafe"

	"github.com/moontrade/grip/pkg/atomicx"
	"github.com/moontrade/grip/pkg/counter"
	"github.com/moontrade/grip/pkg/timex"
	"github.com/moontrade/grip/trace"
	"golang.org/x/sys/cpu"
)

// control is the bookkeeping block behind Shared and Weak handles.
// The strong count owns the resource; the weak count owns the block.
// All strong handles collectively hold one implicit weak reference,
// dropped when the last strong handle releases, so the block is freed
// exactly once by whichever side takes weak to zero.
type control[T any] struct {
	strong counter.Counter
	_      cpu.CacheLinePad
	weak   counter.Counter
	_      cpu.CacheLinePad

	// gen increments each time a pooled block is recycled. Handles
	// snapshot it at creation and refuse to touch a newer generation.
	gen   counter.Counter
	state State
	value atomicx.Pointer[T]

	dispose func(*T)
	exec    Executor
	alloc   Allocator
	raw     unsafe.Pointer
	fac     *Factory[T]
	site    string
}

func (c *control[T]) init(v *T, dispose func(*T)) {
	c.strong.Store(1)
	c.weak.Store(1) // implicit weak held by the strong handles
	c.state.store(StateOwned)
	c.value.Store(v)
	c.dispose = dispose
}

// retain adds a strong owner. The caller must already hold one.
func (c *control[T]) retain() {
	if n := c.strong.Incr(); n < 2 {
		panic("handle: clone count is less than 2: " + strconv.Itoa(int(n)))
	}
}

func (c *control[T]) releaseStrong() {
	n := c.strong.Decr()
	if n > 0 {
		return
	}
	if n < 0 {
		panic("handle: count is less than 0: " + strconv.Itoa(int(n)))
	}
	c.destroy()
}

// destroy runs exactly once, on the goroutine that took strong to zero.
// The block stays alive for weak observers; only the resource dies
// here. The disposer call is handed to the executor when one is
// configured, with an inline fallback so it can never be lost.
func (c *control[T]) destroy() {
	c.state.store(StateDestroyed)
	v := c.value.Swap(nil)
	f := c.fac
	if f != nil {
		f.stats.Destroys.Incr()
	}
	if c.site != "" {
		trace.Untrack(c.site)
		c.site = ""
	}
	dispose, alloc, raw := c.dispose, c.alloc, c.raw
	if v != nil && (dispose != nil || alloc != nil) {
		task := func() {
			if dispose != nil {
				dispose(v)
			}
			if alloc != nil {
				alloc.Free(raw)
			}
		}
		if f != nil && f.cfg.Profile {
			inner := task
			task = func() {
				begin := timex.NanoTime()
				inner()
				f.stats.DisposeDur.Add(timex.NanoTime() - begin)
			}
		}
		if exec := c.exec; exec != nil {
			if err := exec.Submit(task); err != nil {
				task()
			}
		} else {
			task()
		}
	}
	c.releaseWeak()
}

func (c *control[T]) releaseWeak() {
	n := c.weak.Decr()
	if n > 0 {
		return
	}
	if n < 0 {
		panic("handle: weak count is less than 0: " + strconv.Itoa(int(n)))
	}
	c.free()
}

// free releases the block itself. Pooled blocks go back to their
// factory shard; everything else is left to the collector.
func (c *control[T]) free() {
	c.state.store(StateFreed)
	if f := c.fac; f != nil {
		f.stats.Frees.Incr()
		f.recycle(c)
	}
}

// promote is the weak-to-strong transition: a single atomic
// check-and-increment that can never revive a dead resource.
func (c *control[T]) promote() bool {
	for {
		n := c.strong.Load()
		if n <= 0 {
			return false
		}
		if c.strong.Cas(n, n+1) {
			return true
		}
	}
}

// Shared is a reference-counted owning handle. Share by Clone, Assign
// or Downgrade; wrapping the same raw pointer twice creates two
// independent owners and ends in a double dispose. The zero value
// behaves like a released handle.
type Shared[T any] struct {
	noCopy atomicx.NoCopy
	ctl    *control[T]
	gen    int64
}

// NewShared wraps v in a reference-counted handle. dispose runs exactly
// once, when the last strong handle releases; nil means no cleanup. A
// nil v creates a counted handle over nothing and the disposer is
// skipped.
func NewShared[T any](v *T, dispose func(*T)) *Shared[T] {
	c := &control[T]{}
	c.init(v, dispose)
	if trace.Enabled() {
		c.site = trace.Site(1)
		trace.Track(c.site)
	}
	return &Shared[T]{ctl: c}
}

func (s *Shared[T]) live() *control[T] {
	c := s.ctl
	if c == nil {
		panic("handle: use after release")
	}
	if c.gen.Load() != s.gen {
		panic("handle: stale handle")
	}
	return c
}

// Clone adds a strong owner and returns its handle.
func (s *Shared[T]) Clone() *Shared[T] {
	c := s.live()
	c.retain()
	return &Shared[T]{ctl: c, gen: s.gen}
}

// Release drops this handle's ownership. The last release destroys the
// resource. Releasing twice panics.
func (s *Shared[T]) Release() {
	c := s.live()
	s.ctl = nil
	c.releaseStrong()
}

// Assign retargets s at src's resource: src's block gains an owner,
// then the block s previously held loses one. Assigning between two
// handles over the same block, including s to itself, is a no-op. A
// released handle may be reused as an assignment target.
func (s *Shared[T]) Assign(src *Shared[T]) {
	c := src.live()
	if s.ctl == c && s.gen == src.gen {
		return
	}
	old := s.ctl
	if old != nil && old.gen.Load() != s.gen {
		// Stale over a recycled block; nothing left to release.
		old = nil
	}
	c.retain()
	s.ctl = c
	s.gen = src.gen
	if old != nil {
		old.releaseStrong()
	}
}

// Downgrade creates a weak observer of the resource.
func (s *Shared[T]) Downgrade() *Weak[T] {
	c := s.live()
	c.weak.Incr()
	return &Weak[T]{ctl: c, gen: s.gen}
}

// Value returns the resource, or nil once it was destroyed or this
// handle released.
func (s *Shared[T]) Value() *T {
	c := s.ctl
	if c == nil || c.gen.Load() != s.gen {
		return nil
	}
	return c.value.Load()
}

// UseCount reports the number of strong owners. Approximate while other
// goroutines clone and release.
func (s *Shared[T]) UseCount() int64 {
	c := s.ctl
	if c == nil || c.gen.Load() != s.gen {
		return 0
	}
	n := c.strong.Load()
	if n < 0 {
		n = 0
	}
	return n
}

// WeakCount reports the number of weak observers.
func (s *Shared[T]) WeakCount() int64 {
	c := s.ctl
	if c == nil || c.gen.Load() != s.gen {
		return 0
	}
	n := c.weak.Load()
	if c.strong.Load() > 0 {
		n-- // implicit weak held by the strong handles
	}
	if n < 0 {
		n = 0
	}
	return n
}

// State reports the resource state. A released handle reports
// StateFreed regardless of the block it used to hold.
func (s *Shared[T]) State() State {
	c := s.ctl
	if c == nil || c.gen.Load() != s.gen {
		return StateFreed
	}
	return c.state.Load()
}
