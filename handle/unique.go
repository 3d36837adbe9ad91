package handle

import (
	"github.com/moontrade/grip/pkg/atomicx"
	"github.com/moontrade/grip/trace"
)

// Unique is a single-owner handle with move semantics. Exactly one
// handle owns the resource at any time; transfers empty the source.
// The zero value is an empty handle. Copying is disallowed; transfer
// with Move or MoveTo. A Unique is not safe for concurrent use.
type Unique[T any] struct {
	noCopy  atomicx.NoCopy
	v       *T
	dispose func(*T)
	exec    Executor
	site    string
}

// NewUnique takes exclusive ownership of v. dispose runs exactly once,
// on Dispose, Reset or transfer-over; nil means no cleanup. A nil v
// creates an empty handle.
func NewUnique[T any](v *T, dispose func(*T)) *Unique[T] {
	u := &Unique[T]{v: v, dispose: dispose}
	if v != nil && trace.Enabled() {
		u.site = trace.Site(1)
		trace.Track(u.site)
	}
	return u
}

// Value returns the owned resource, or nil when empty.
func (u *Unique[T]) Value() *T { return u.v }

// IsEmpty reports whether the handle owns nothing.
func (u *Unique[T]) IsEmpty() bool { return u.v == nil }

// Move transfers ownership into a fresh handle and empties u. The
// source keeps its disposer and can be re-armed with Reset.
func (u *Unique[T]) Move() *Unique[T] {
	n := &Unique[T]{v: u.v, dispose: u.dispose, exec: u.exec, site: u.site}
	u.v = nil
	u.site = ""
	return n
}

// MoveTo transfers ownership into dst, disposing whatever dst owned
// first. Transferring a handle onto itself is a no-op.
func (u *Unique[T]) MoveTo(dst *Unique[T]) {
	if u == dst {
		return
	}
	dst.Dispose()
	dst.v, dst.dispose, dst.exec, dst.site = u.v, u.dispose, u.exec, u.site
	u.v = nil
	u.site = ""
}

// Reset disposes the current resource and takes ownership of v, which
// may be nil. Resetting to the already-owned pointer is a no-op. The
// disposer carries over.
func (u *Unique[T]) Reset(v *T) {
	if u.v == v {
		return
	}
	u.Dispose()
	u.v = v
	if v != nil && trace.Enabled() {
		u.site = trace.Site(1)
		trace.Track(u.site)
	}
}

// Release relinquishes ownership without disposing and returns the raw
// pointer, nil when empty. Cleanup becomes the caller's problem.
func (u *Unique[T]) Release() *T {
	v := u.v
	u.v = nil
	if u.site != "" {
		trace.Untrack(u.site)
		u.site = ""
	}
	return v
}

// Dispose destroys the owned resource now and empties the handle.
// Disposing an empty handle is a no-op.
func (u *Unique[T]) Dispose() {
	v := u.v
	if v == nil {
		return
	}
	u.v = nil
	if u.site != "" {
		trace.Untrack(u.site)
		u.site = ""
	}
	d := u.dispose
	if d == nil {
		return
	}
	if exec := u.exec; exec != nil {
		if err := exec.Submit(func() { d(v) }); err != nil {
			d(v)
		}
		return
	}
	d(v)
}
