package handle

import (
	"github.com/moontrade/grip/pkg/atomicx"
)

// Weak observes a resource owned elsewhere without extending its
// lifetime. It keeps the control block alive, never the resource.
// Created by Shared.Downgrade or Clone of another Weak.
type Weak[T any] struct {
	noCopy atomicx.NoCopy
	ctl    *control[T]
	gen    int64
}

func (w *Weak[T]) live() *control[T] {
	c := w.ctl
	if c == nil {
		panic("handle: use after release")
	}
	if c.gen.Load() != w.gen {
		panic("handle: stale handle")
	}
	return c
}

// Upgrade promotes the observer to a strong owner. It fails normally,
// returning ok == false, once the last strong handle has released; it
// never panics and never revives a destroyed resource.
func (w *Weak[T]) Upgrade() (*Shared[T], bool) {
	c := w.ctl
	if c == nil || c.gen.Load() != w.gen {
		return nil, false
	}
	if !c.promote() {
		return nil, false
	}
	return &Shared[T]{ctl: c, gen: w.gen}, true
}

// Expired reports whether the resource has been destroyed.
func (w *Weak[T]) Expired() bool {
	c := w.ctl
	return c == nil || c.gen.Load() != w.gen || c.strong.Load() <= 0
}

// UseCount reports the number of strong owners still alive.
func (w *Weak[T]) UseCount() int64 {
	c := w.ctl
	if c == nil || c.gen.Load() != w.gen {
		return 0
	}
	n := c.strong.Load()
	if n < 0 {
		n = 0
	}
	return n
}

// Clone adds another weak observer. Cloning an expired observer is
// fine; cloning a released one panics.
func (w *Weak[T]) Clone() *Weak[T] {
	c := w.live()
	c.weak.Incr()
	return &Weak[T]{ctl: c, gen: w.gen}
}

// Release drops the observer. The last weak release of a destroyed
// resource frees the block. Releasing twice panics.
func (w *Weak[T]) Release() {
	c := w.live()
	w.ctl = nil
	c.releaseWeak()
}
