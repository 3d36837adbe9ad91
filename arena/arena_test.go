package arena

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/moontrade/grip/handle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocFree(t *testing.T) {
	a := New(Config{SlotSize: 64, SlabSize: 4 << 10})
	p, err := a.Alloc(48)
	require.NoError(t, err)
	require.NotNil(t, p)

	// The slot is writable memory.
	b := unsafe.Slice((*byte)(p), 48)
	for i := range b {
		b[i] = byte(i)
	}
	assert.EqualValues(t, 1, a.Live())

	a.Free(p)
	assert.EqualValues(t, 0, a.Live())
	require.NoError(t, a.Close())
}

func TestArenaSlotReuse(t *testing.T) {
	a := New(Config{SlotSize: 64, SlabSize: 4 << 10, NumShards: 1})
	p1, err := a.Alloc(64)
	require.NoError(t, err)
	a.Free(p1)
	p2, err := a.Alloc(64)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.EqualValues(t, 1, a.Stats().Slabs.Load())
	a.Free(p2)
	require.NoError(t, a.Close())
}

func TestArenaExhausted(t *testing.T) {
	a := New(Config{SlotSize: 512, SlabSize: 4 << 10, MaxSlabs: 1, NumShards: 1})
	slots := a.cfg.SlabSize / a.cfg.SlotSize
	held := make([]unsafe.Pointer, 0, slots)
	for i := 0; i < slots; i++ {
		p, err := a.Alloc(512)
		require.NoError(t, err)
		held = append(held, p)
	}
	_, err := a.Alloc(512)
	require.ErrorIs(t, err, ErrExhausted)

	// Freeing one slot makes the arena serviceable again.
	a.Free(held[0])
	p, err := a.Alloc(512)
	require.NoError(t, err)
	held[0] = p

	for _, p := range held {
		a.Free(p)
	}
	require.NoError(t, a.Close())
}

func TestArenaSizeLimit(t *testing.T) {
	a := New(Config{SlotSize: 64})
	_, err := a.Alloc(65)
	require.ErrorIs(t, err, ErrSizeLimit)
	require.NoError(t, a.Close())
}

func TestArenaClose(t *testing.T) {
	a := New(Config{SlotSize: 64, SlabSize: 4 << 10})
	p, err := a.Alloc(64)
	require.NoError(t, err)

	require.ErrorIs(t, a.Close(), ErrLive)
	a.Free(p)
	require.NoError(t, a.Close())
	require.ErrorIs(t, a.Close(), ErrClosed)

	_, err = a.Alloc(64)
	require.ErrorIs(t, err, ErrClosed)
}

func TestArenaGrows(t *testing.T) {
	a := New(Config{SlotSize: 1 << 10, SlabSize: 4 << 10, NumShards: 1})
	// SlabSize may be raised to the page size, so size the run off cfg.
	perSlab := a.cfg.SlabSize / a.cfg.SlotSize
	var held []unsafe.Pointer
	for i := 0; i < perSlab*2+1; i++ {
		p, err := a.Alloc(1 << 10)
		require.NoError(t, err)
		held = append(held, p)
	}
	assert.EqualValues(t, 3, a.Stats().Slabs.Load())
	for _, p := range held {
		a.Free(p)
	}
	require.NoError(t, a.Close())
}

func TestMallocAllocFree(t *testing.T) {
	var m Malloc
	p, err := m.Alloc(128)
	require.NoError(t, err)
	require.NotNil(t, p)

	b := unsafe.Slice((*byte)(p), 128)
	for _, v := range b {
		require.Zero(t, v, "allocation not zeroed")
	}
	b[0] = 0xff
	assert.EqualValues(t, 1, m.Live())
	m.Free(p)
	assert.EqualValues(t, 0, m.Live())
}

type payload struct {
	seq  uint64
	data [40]byte
}

func TestArenaBacksFactory(t *testing.T) {
	a := New(Config{SlotSize: 64, SlabSize: 4 << 10})
	f := handle.NewFactory(handle.Config[payload]{Alloc: a})

	s, err := f.New()
	require.NoError(t, err)
	s.Value().seq = 42
	assert.EqualValues(t, 1, a.Live())

	w := s.Downgrade()
	s.Release()
	assert.EqualValues(t, 0, a.Live(), "slot must return on destroy")
	_, ok := w.Upgrade()
	assert.False(t, ok)
	w.Release()
	require.NoError(t, a.Close())
}

func TestMallocBacksFactory(t *testing.T) {
	var m Malloc
	f := handle.NewFactory(handle.Config[payload]{Alloc: &m})
	s, err := f.New()
	require.NoError(t, err)
	s.Value().data[0] = 1
	s.Release()
	assert.EqualValues(t, 0, m.Live())
}

func BenchmarkArenaAllocFree(b *testing.B) {
	a := New(Config{SlotSize: 64})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := a.Alloc(64)
		if err != nil {
			b.Fatal(err)
		}
		a.Free(p)
	}
	b.StopTimer()
	_ = a.Close()
}
