package atomicx

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPointer(t *testing.T) {
	var p Pointer[int]
	if p.Load() != nil {
		t.Fatal("zero value should hold nil")
	}
	a, b := new(int), new(int)
	p.Store(a)
	if p.Load() != a {
		t.Fatal("load after store mismatch")
	}
	if old := p.Swap(b); old != a {
		t.Fatal("swap returned the wrong pointer")
	}
	if p.CompareAndSwap(a, b) {
		t.Fatal("cas with stale old succeeded")
	}
	if !p.CompareAndSwap(b, nil) {
		t.Fatal("cas with current old failed")
	}
	if p.Load() != nil {
		t.Fatal("expected nil after cas")
	}
}

func TestPointerConcurrentSwap(t *testing.T) {
	var (
		p    Pointer[int]
		seen int64
		wg   sync.WaitGroup
	)
	v := new(int)
	p.Store(v)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Swap(nil) == v {
				atomic.AddInt64(&seen, 1)
			}
		}()
	}
	wg.Wait()
	if seen != 1 {
		t.Fatalf("expected exactly one goroutine to win the swap, got %d", seen)
	}
}

func BenchmarkPointerLoad(b *testing.B) {
	var p Pointer[int]
	p.Store(new(int))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if p.Load() == nil {
			b.Fatal("nil")
		}
	}
}
