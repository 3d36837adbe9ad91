// Copyright 2019 Andy Pan & Dietoad. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Mutex guards very short critical sections: free-list pushes and pops,
// registry shard updates. Contended lockers yield with exponentially
// growing Gosched bursts instead of parking. The zero value is unlocked.
// Not reentrant.
type Mutex uint32

const maxBackoff = 16

// Lock spins until the lock is acquired.
func (m *Mutex) Lock() {
	backoff := 1
	for !atomic.CompareAndSwapUint32((*uint32)(m), 0, 1) {
		// See https://en.wikipedia.org/wiki/Exponential_backoff.
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

// TryLock acquires the lock without spinning and reports success.
func (m *Mutex) TryLock() bool {
	return atomic.CompareAndSwapUint32((*uint32)(m), 0, 1)
}

// Unlock releases the lock.
func (m *Mutex) Unlock() {
	atomic.StoreUint32((*uint32)(m), 0)
}
