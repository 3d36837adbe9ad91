package handle

import (
	"strconv"
	"sync/atomic"
)

// State tracks a control block's resource through its lifetime.
// Owned resources have at least one strong owner. Destroyed means the
// disposer ran; weak observers may still hold the block. Freed is
// terminal: the block was released or handed back for recycling.
type State int32

const (
	StateOwned State = iota
	StateDestroyed
	StateFreed
)

func (s *State) Load() State {
	return State(atomic.LoadInt32((*int32)(s)))
}

func (s *State) store(v State) {
	atomic.StoreInt32((*int32)(s), int32(v))
}

func (s State) String() string {
	switch s {
	case StateOwned:
		return "owned"
	case StateDestroyed:
		return "destroyed"
	case StateFreed:
		return "freed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}
