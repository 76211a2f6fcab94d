package space

import (
	"sync"
	"sync/atomic"
)

// State captures the lifecycle of a Space: Initializing, Active or Shutdown.
type State uint32

const (
	// Initializing is the state of a Space until Init returns.
	Initializing State = iota
	// Active spaces answer RPCs, drain their pipeline and gossip.
	Active
	// Shutdown is final.
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Active:
		return "Active"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// WGLIMIT is the maximum number of goroutines that can be launched through
// state.goFunc
const WGLIMIT = 20

type state struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// goFunc starts f in a goroutine tracked by the waitgroup. It returns false,
// without running f, when WGLIMIT goroutines are already running.
func (b *state) goFunc(f func()) bool {
	if atomic.AddInt32(&b.wgCount, 1) > WGLIMIT {
		atomic.AddInt32(&b.wgCount, -1)
		return false
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()

	return true
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
