// Package reclaim provides executors that run disposers away from the
// releasing goroutine. Every executor satisfies handle.Executor; a
// failed Submit is the caller's cue to dispose inline, so cleanup is
// never lost to scheduling.
package reclaim

import (
	"runtime"

	"github.com/moontrade/grip/handle"
	"github.com/moontrade/grip/pkg/counter"
	"github.com/moontrade/grip/pkg/util"
	logger "github.com/moontrade/log"
	"github.com/panjf2000/ants/v2"
)

var _ handle.Executor = (*Pool)(nil)

// Stats counts executor activity.
type Stats struct {
	Submitted counter.Counter
	Completed counter.Counter
	Panicked  counter.Counter
	Rejected  counter.Counter
}

// Pool runs tasks on a fixed-size ants pool. Submission never blocks:
// a saturated or closed pool rejects with an error instead. Panicking
// tasks are recovered, logged and counted; they never reach the
// releasing goroutine.
type Pool struct {
	pool  *ants.Pool
	stats Stats
}

// NewPool creates a pool with size workers. Sizes below one default to
// GOMAXPROCS.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	ap, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: ap}, nil
}

// Submit schedules fn on the pool. The error surfaces when the pool is
// closed or saturated; run fn inline in that case.
func (p *Pool) Submit(fn func()) error {
	err := p.pool.Submit(func() {
		p.invoke(fn)
	})
	if err != nil {
		p.stats.Rejected.Incr()
		return err
	}
	p.stats.Submitted.Incr()
	return nil
}

func (p *Pool) invoke(task func()) {
	defer func() {
		if e := recover(); e != nil {
			p.stats.Panicked.Incr()
			err := util.PanicToError(e)
			logger.WarnErr(err, "panic")
			return
		}
		p.stats.Completed.Incr()
	}()
	task()
}

func (p *Pool) Stats() *Stats { return &p.stats }

// Running reports workers currently executing tasks.
func (p *Pool) Running() int { return p.pool.Running() }

// Cap reports the worker limit.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Close releases the pool. Tasks already running finish; later Submit
// calls fail.
func (p *Pool) Close() error {
	p.pool.Release()
	return nil
}
