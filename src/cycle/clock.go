package cycle

import (
	"sync"
	"time"
)

// Clock is the source of time for the scheduler and the hash chain.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	// WaitUntil returns a channel that receives once the clock reaches
	// deadline. It fires immediately if deadline has already passed.
	WaitUntil(deadline time.Time) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// NewSystemClock ...
func NewSystemClock() SystemClock {
	return SystemClock{}
}

// Now ...
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After ...
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// WaitUntil ...
func (SystemClock) WaitUntil(deadline time.Time) <-chan time.Time {
	return time.After(time.Until(deadline))
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// ManualClock is a deterministic Clock that only moves when told to. Waiters
// fire when Advance or Set moves the clock past their deadline.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

// NewManualClock creates a ManualClock set to now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

// Now ...
func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After ...
func (m *ManualClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	deadline := m.now.Add(d)
	m.mu.Unlock()
	return m.WaitUntil(deadline)
}

// WaitUntil ...
func (m *ManualClock) WaitUntil(deadline time.Time) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	if !deadline.After(m.now) {
		ch <- m.now
		return ch
	}
	m.waiters = append(m.waiters, waiter{deadline: deadline, ch: ch})
	return ch
}

// Advance moves the clock forward by d.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	now := m.now.Add(d)
	m.mu.Unlock()
	m.Set(now)
}

// Set moves the clock to t and fires every waiter whose deadline has been
// reached. Setting the clock backwards is allowed and fires nothing.
func (m *ManualClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t

	pending := m.waiters[:0]
	for _, w := range m.waiters {
		if w.deadline.After(t) {
			pending = append(pending, w)
			continue
		}
		w.ch <- t
	}
	m.waiters = pending
}

// Waiters returns the number of pending waiters.
func (m *ManualClock) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
