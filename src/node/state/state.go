package state

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a Cadence node: Producing, Observing or Shutdown
type State uint32

const (
	// Producing is the state in which a node builds, votes for and elects
	// deltas as a member of the producer set.
	Producing State = iota

	// Observing is the state of a node outside the producer set. It follows
	// the hash chain from announcements but never builds or votes.
	Observing

	// Shutdown is the state in which a node stops responding to external events
	// and closes its transport.
	Shutdown
)

// WGLIMIT is the maximum number of goroutines that can be launched through
// state.GoFunc
const WGLIMIT = 20

// PHASELIMIT is the number of goroutines reserved for phase handlers, launched
// through state.GoPhase. They do not count against WGLIMIT.
const PHASELIMIT = 4

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Producing:
		return "Producing"
	case Observing:
		return "Observing"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with get and set methods. It is also used to limit the
// number of goroutines launched by the node, and to wait for all of them to
// complete.
type Manager struct {
	state      State
	wg         sync.WaitGroup
	wgCount    int32
	phaseCount int32
}

// GetState returns the current state.
func (b *Manager) GetState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (b *Manager) SetState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// GoFunc launches a goroutine for a given function, if there are currently
// less than WGLIMIT running. It increments the waitgroup and reports whether
// the function was launched.
func (b *Manager) GoFunc(f func()) bool {
	return b.launch(&b.wgCount, WGLIMIT, f)
}

// GoPhase is GoFunc for phase handlers. It draws from a separate pool of
// PHASELIMIT goroutines, so a flood of RPCs cannot starve the cycle.
func (b *Manager) GoPhase(f func()) bool {
	return b.launch(&b.phaseCount, PHASELIMIT, f)
}

func (b *Manager) launch(count *int32, limit int32, f func()) bool {
	if atomic.AddInt32(count, 1) > limit {
		atomic.AddInt32(count, -1)
		return false
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(count, -1)
		f()
	}()

	return true
}

// Running returns the number of goroutines launched through GoFunc and
// GoPhase that have not returned yet.
func (b *Manager) Running() int {
	return int(atomic.LoadInt32(&b.wgCount) + atomic.LoadInt32(&b.phaseCount))
}

// WaitRoutines waits for all the goroutines in the waitgroup.
func (b *Manager) WaitRoutines() {
	b.wg.Wait()
}
