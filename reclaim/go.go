package reclaim

import (
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/moontrade/grip/handle"
)

var _ handle.Executor = Go{}

// Go is an executor over the shared gopool worker pool for callers
// that do not want a dedicated pool. Submit never fails; gopool
// recovers and logs panicking tasks itself.
type Go struct{}

func (Go) Submit(fn func()) error {
	gopool.Go(fn)
	return nil
}
