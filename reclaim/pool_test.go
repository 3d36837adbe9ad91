package reclaim

import (
	"sync"
	"testing"
	"time"

	"github.com/moontrade/grip/pkg/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsTasks(t *testing.T) {
	p, err := NewPool(2)
	require.NoError(t, err)
	defer p.Close()

	const tasks = 64
	var (
		ran counter.Counter
		wg  sync.WaitGroup
	)
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			ran.Incr()
		}
		// Saturation falls back inline, the way a releasing handle would.
		if err := p.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	assert.EqualValues(t, tasks, ran.Load())
	assert.EqualValues(t, ran.Load(),
		p.Stats().Submitted.Load()+p.Stats().Rejected.Load())
}

func TestPoolPanicContained(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func() {
		defer wg.Done()
		panic("disposer gone wrong")
	}))
	wg.Wait()
	require.Eventually(t, func() bool {
		return p.Stats().Panicked.Load() == 1
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, 0, p.Stats().Completed.Load())
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Close()

	var (
		started = make(chan struct{})
		release = make(chan struct{})
	)
	require.NoError(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	err = p.Submit(func() {})
	require.Error(t, err)
	assert.EqualValues(t, 1, p.Stats().Rejected.Load())
	close(release)
}

func TestPoolRejectsWhenClosed(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.Error(t, p.Submit(func() {}))
	assert.EqualValues(t, 1, p.Stats().Rejected.Load())
}

func TestPoolDefaultSize(t *testing.T) {
	p, err := NewPool(0)
	require.NoError(t, err)
	defer p.Close()
	assert.Greater(t, p.Cap(), 0)
}

func TestGoExecutor(t *testing.T) {
	var (
		g  Go
		wg sync.WaitGroup
	)
	wg.Add(1)
	require.NoError(t, g.Submit(func() { wg.Done() }))
	wg.Wait()
}
