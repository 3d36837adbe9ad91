// Package trace is an opt-in registry of live handles keyed by their
// creation site. It exists to answer one question cheaply: what did
// this process create and never release. Disabled it costs one atomic
// load per handle.
package trace

import (
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/minio/highwayhash"
	"github.com/moontrade/grip/pkg/counter"
	"github.com/moontrade/grip/pkg/spinlock"
	logger "github.com/moontrade/log"
)

const numShards = 16

// Fixed key: the hash only spreads sites across shards.
var hashKey = [32]byte{
	0x4b, 0xe7, 0x43, 0xfa, 0x5c, 0x14, 0x99, 0x21,
	0x8f, 0x0d, 0x62, 0xb7, 0xa3, 0x35, 0xd8, 0x6e,
	0x11, 0xc4, 0x7f, 0x58, 0x90, 0x2a, 0xee, 0x03,
	0xbd, 0x49, 0x17, 0x86, 0x5b, 0xf2, 0x6c, 0xd5,
}

type shard struct {
	mu    spinlock.Mutex
	sites map[string]int64
}

// Stats counts registry activity.
type Stats struct {
	Tracked   counter.Counter
	Untracked counter.Counter
	Reports   counter.Counter
}

var (
	enabled int32
	shards  [numShards]shard
	stats   Stats
)

func Enable()  { atomic.StoreInt32(&enabled, 1) }
func Disable() { atomic.StoreInt32(&enabled, 0) }

func Enabled() bool {
	return atomic.LoadInt32(&enabled) != 0
}

func Counters() *Stats { return &stats }

// Site returns "file:line" for the caller skip frames up the stack,
// with skip 0 naming the caller of Site itself.
func Site(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return file + ":" + strconv.Itoa(line)
}

func shardOf(site string) *shard {
	h := highwayhash.Sum64([]byte(site), hashKey[:])
	return &shards[h&(numShards-1)]
}

// Track records a live handle created at site.
func Track(site string) {
	s := shardOf(site)
	s.mu.Lock()
	if s.sites == nil {
		s.sites = make(map[string]int64)
	}
	s.sites[site]++
	s.mu.Unlock()
	stats.Tracked.Incr()
}

// Untrack records the destruction of a handle created at site.
func Untrack(site string) {
	s := shardOf(site)
	s.mu.Lock()
	if s.sites != nil {
		if n := s.sites[site] - 1; n > 0 {
			s.sites[site] = n
		} else {
			delete(s.sites, site)
		}
	}
	s.mu.Unlock()
	stats.Untracked.Incr()
}

// Live reports the number of tracked handles not yet destroyed.
func Live() int64 {
	var total int64
	for i := range shards {
		s := &shards[i]
		s.mu.Lock()
		for _, n := range s.sites {
			total += n
		}
		s.mu.Unlock()
	}
	return total
}

// Sites returns a snapshot of live counts keyed by creation site.
func Sites() map[string]int64 {
	out := make(map[string]int64)
	for i := range shards {
		s := &shards[i]
		s.mu.Lock()
		for site, n := range s.sites {
			out[site] = n
		}
		s.mu.Unlock()
	}
	return out
}

// Report logs every site with live handles and returns the total.
func Report() int64 {
	stats.Reports.Incr()
	var total int64
	for site, n := range Sites() {
		logger.Warn("%d leaked handle(s) created at %s", n, site)
		total += n
	}
	if total > 0 {
		logger.Warn("%d leaked handle(s) total", total)
	}
	return total
}

// Reset drops all tracked sites. Meant for tests.
func Reset() {
	for i := range shards {
		s := &shards[i]
		s.mu.Lock()
		s.sites = nil
		s.mu.Unlock()
	}
}
