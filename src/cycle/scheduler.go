package cycle

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// SubscriberBuffer is the capacity of each subscriber channel.
const SubscriberBuffer = 16

// LatestHashSource gives the tip of the hash chain at a point in time.
type LatestHashSource interface {
	GetLatestDeltaHash(asOf time.Time) delta.Hash
}

// Scheduler emits a Phase to every subscriber each time a sub-phase starts.
// Each transition is emitted at most once, in cycle order, and nothing is
// emitted after Stop.
type Scheduler struct {
	config *Config
	clock  Clock
	hashes LatestHashSource
	logger *logrus.Entry

	subLock sync.Mutex
	subs    map[int]chan Phase
	nextSub int

	// previous hash of the cycle being emitted. Only touched by the run
	// goroutine.
	prevCycle int64
	prevHash  delta.Hash

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewScheduler validates the config and creates a Scheduler. It does not
// start the timer.
func NewScheduler(config *Config, clock Clock, hashes LatestHashSource, logger *logrus.Entry) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		l := logrus.New()
		l.Level = logrus.InfoLevel
		logger = logrus.NewEntry(l)
	}

	return &Scheduler{
		config:    config,
		clock:     clock,
		hashes:    hashes,
		logger:    logger.WithField("prefix", "cycle"),
		subs:      make(map[int]chan Phase),
		prevCycle: -1 << 62,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Config returns the cycle timing.
func (s *Scheduler) Config() *Config {
	return s.config
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel. Subscribing to a stopped Scheduler returns a closed
// channel.
func (s *Scheduler) Subscribe() (<-chan Phase, func()) {
	s.subLock.Lock()
	defer s.subLock.Unlock()

	ch := make(chan Phase, SubscriberBuffer)
	if s.stopped {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subLock.Lock()
		defer s.subLock.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Start launches the timer goroutine. Only transitions strictly after the
// current time are emitted.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		start := s.clock.Now()
		cycle, name, status, ok := s.config.PhaseAt(start)
		if ok {
			s.logger.WithFields(logrus.Fields{
				"cycle":  cycle,
				"phase":  name,
				"status": status,
			}).Debug("Starting mid-phase")
		}
		go s.run(start)
	})
}

// Stop cancels the timer, waits for the goroutine to exit and closes every
// subscriber channel.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			<-s.doneCh
		}

		s.subLock.Lock()
		defer s.subLock.Unlock()
		s.stopped = true
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
	})
}

func (s *Scheduler) run(start time.Time) {
	defer close(s.doneCh)

	next := s.config.nextBoundary(start)

	for {
		select {
		case <-s.clock.WaitUntil(next.start):
		case <-s.stopCh:
			return
		}

		// The stop signal wins over a timer that fired at the same time.
		select {
		case <-s.stopCh:
			return
		default:
		}

		now := s.clock.Now()

		if !now.Before(next.end) {
			s.logger.WithFields(logrus.Fields{
				"cycle":  next.cycle,
				"phase":  next.name,
				"status": next.status,
				"late":   now.Sub(next.start),
			}).Warn("Skipping elapsed phase")
		} else {
			s.emit(next)
		}

		next = s.after(next, now)
	}
}

// after returns the window following b. If the clock has jumped by more than
// a cycle, it resumes from the current cycle instead of replaying every
// missed window.
func (s *Scheduler) after(b boundary, now time.Time) boundary {
	if now.Sub(b.start) > s.config.CycleDuration {
		current := s.config.CycleAt(now)
		s.logger.WithFields(logrus.Fields{
			"from": b.cycle,
			"to":   current,
		}).Warn("Clock jumped, skipping cycles")
		windows := s.config.boundaries(current)
		for _, w := range windows {
			if now.Before(w.end) {
				return w
			}
		}
		return s.config.nextBoundary(now)
	}

	windows := s.config.boundaries(b.cycle)
	for i, w := range windows {
		if w.name == b.name && w.status == b.status && i+1 < len(windows) {
			return windows[i+1]
		}
	}
	return s.config.boundaries(b.cycle + 1)[0]
}

func (s *Scheduler) previousHash(cycle int64) delta.Hash {
	if cycle != s.prevCycle {
		s.prevCycle = cycle
		s.prevHash = delta.ZeroHash
		if s.hashes != nil {
			s.prevHash = s.hashes.GetLatestDeltaHash(s.config.CycleStart(cycle))
		}
	}
	return s.prevHash
}

func (s *Scheduler) emit(b boundary) {
	phase := Phase{
		Cycle:             b.cycle,
		Name:              b.name,
		Status:            b.status,
		PreviousDeltaHash: s.previousHash(b.cycle),
		Time:              b.start,
	}

	s.logger.WithFields(logrus.Fields{
		"cycle":  phase.Cycle,
		"phase":  phase.Name,
		"status": phase.Status,
		"prev":   phase.PreviousDeltaHash.Short(),
	}).Debug("Phase")

	s.subLock.Lock()
	defer s.subLock.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- phase:
		default:
			s.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"phase":      phase.String(),
			}).Warn("Subscriber is full, dropping phase")
		}
	}
}
