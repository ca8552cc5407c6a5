package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// Config ...
type Config struct {
	// PublishTimeout bounds the publication of an elected delta.
	PublishTimeout time.Duration
	// MaxCycles is the number of recent cycles whose winner is remembered.
	MaxCycles int
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		PublishTimeout: 5 * time.Second,
		MaxCycles:      16,
	}
}

// Consensus reacts to the Producing transitions of the cycle. Each handler
// runs on the Launcher and performs a single action.
type Consensus struct {
	conf Config

	builder DeltaBuilder
	voter   DeltaVoter
	elector DeltaElector
	cache   DeltaCache
	hub     DeltaHub
	phases  PhaseSource

	launcher Launcher
	metrics  *Metrics
	logger   *logrus.Entry

	// winners holds a nil entry for cycles decided without a winner.
	winnerLock sync.RWMutex
	winners    *cycleWindow[*delta.CandidateDelta]
	onElected  func(prev delta.Hash)

	ctx    context.Context
	cancel context.CancelFunc

	startOnce   sync.Once
	stopOnce    sync.Once
	unsubscribe func()
	doneCh      chan struct{}
}

// NewConsensus ...
func NewConsensus(conf Config,
	builder DeltaBuilder,
	voter DeltaVoter,
	elector DeltaElector,
	cache DeltaCache,
	hub DeltaHub,
	phases PhaseSource,
	launcher Launcher,
	metrics *Metrics,
	logger *logrus.Entry) *Consensus {

	if builder == nil || voter == nil || elector == nil || cache == nil ||
		hub == nil || phases == nil || launcher == nil {
		panic("consensus: nil collaborator")
	}

	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consensus{
		conf:     conf,
		builder:  builder,
		voter:    voter,
		elector:  elector,
		cache:    cache,
		hub:      hub,
		phases:   phases,
		launcher: launcher,
		metrics:  metrics,
		logger:   logger.WithField("prefix", "consensus"),
		winners:  newCycleWindow[*delta.CandidateDelta]("Winners", conf.MaxCycles),
		ctx:      ctx,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}
}

// Start subscribes to the phase source.
func (c *Consensus) Start() {
	c.startOnce.Do(func() {
		ch, unsubscribe := c.phases.Subscribe()
		c.unsubscribe = unsubscribe
		go c.run(ch)
	})
}

// Stop unsubscribes from the phase source and cancels in-flight
// publications. Handlers already running complete on their own.
func (c *Consensus) Stop() {
	c.stopOnce.Do(func() {
		c.cancel()

		started := true
		c.startOnce.Do(func() { started = false })
		if !started {
			return
		}

		c.unsubscribe()
		<-c.doneCh
	})
}

func (c *Consensus) run(ch <-chan cycle.Phase) {
	defer close(c.doneCh)

	for {
		select {
		case phase, ok := <-ch:
			if !ok {
				return
			}
			c.dispatch(phase)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consensus) dispatch(phase cycle.Phase) {
	var handler func(delta.Hash)

	switch {
	case phase.Is(cycle.Construction, cycle.Producing):
		handler = c.onConstructionProducing
	case phase.Is(cycle.Campaigning, cycle.Producing):
		handler = c.onCampaigningProducing
	case phase.Is(cycle.Voting, cycle.Producing):
		handler = c.onVotingProducing
	case phase.Is(cycle.Voting, cycle.Collecting):
		handler = c.onVotingCollecting
	default:
		return
	}

	c.metrics.Phases.WithLabelValues(phase.Name.String(), phase.Status.String()).Inc()

	prev := phase.PreviousDeltaHash
	if !c.launcher.GoFunc(func() { handler(prev) }) {
		c.logger.WithField("phase", phase.String()).Warn("Worker pool exhausted, skipping phase")
		c.metrics.Abstentions.WithLabelValues(phase.Name.String()).Inc()

		// Announcements held for this cycle wait on the decision.
		if phase.Is(cycle.Voting, cycle.Producing) {
			c.decide(prev)
		}
	}
}

func (c *Consensus) abstain(phase cycle.PhaseName, prev delta.Hash, reason string) {
	c.metrics.Abstentions.WithLabelValues(phase.String()).Inc()
	c.logger.WithFields(logrus.Fields{
		"phase": phase,
		"prev":  prev.Short(),
	}).Debug(reason)
}

func (c *Consensus) onConstructionProducing(prev delta.Hash) {
	candidate, d, err := c.builder.BuildCandidateDelta(prev)
	if err != nil {
		c.logger.WithError(err).Debug("BuildCandidateDelta")
		c.abstain(cycle.Construction, prev, "Build failed")
		return
	}
	if candidate == nil {
		c.abstain(cycle.Construction, prev, "No candidate")
		return
	}

	if candidate.PreviousDeltaHash != prev {
		c.logger.WithFields(logrus.Fields{
			"prev":      prev.Short(),
			"candidate": candidate.String(),
		}).Error("Builder returned a candidate for another cycle")
		c.abstain(cycle.Construction, prev, "Invalid candidate")
		return
	}

	if err := c.cache.AddLocalDelta(candidate, d); err != nil {
		c.logger.WithError(err).Error("AddLocalDelta")
		c.abstain(cycle.Construction, prev, "Candidate not cached")
		return
	}

	if err := c.hub.BroadcastCandidate(candidate); err != nil {
		c.logger.WithError(err).Warn("BroadcastCandidate")
	}
	c.metrics.Candidates.Inc()
}

func (c *Consensus) onCampaigningProducing(prev delta.Hash) {
	favourite, ok := c.voter.TryGetFavouriteDelta(prev)
	if !ok || favourite == nil {
		c.abstain(cycle.Campaigning, prev, "No favourite")
		return
	}

	if err := c.hub.BroadcastFavourite(favourite); err != nil {
		c.logger.WithError(err).Warn("BroadcastFavourite")
	}
	c.metrics.Favourites.Inc()
}

// decide records the local election of the cycle built on prev, then calls
// the elected handler.
func (c *Consensus) decide(prev delta.Hash) *delta.CandidateDelta {
	winner := c.elector.GetMostPopularCandidateDelta(prev)

	c.winnerLock.Lock()
	c.winners.set(prev, winner)
	onElected := c.onElected
	c.winnerLock.Unlock()

	if onElected != nil {
		onElected(prev)
	}

	return winner
}

func (c *Consensus) onVotingProducing(prev delta.Hash) {
	winner := c.decide(prev)
	if winner == nil {
		c.abstain(cycle.Voting, prev, "No winner")
		return
	}

	d, ok := c.cache.TryGetLocalDelta(winner)
	if !ok {
		c.abstain(cycle.Voting, prev, "Winner built by another producer")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.conf.PublishTimeout)
	defer cancel()

	hash, err := c.hub.PublishDeltaAndBroadcastAddress(ctx, d)
	if err != nil && hash.IsZero() {
		c.metrics.PublishFailures.Inc()
		c.logger.WithError(err).WithField("winner", winner.Hash.Short()).Error("Publish elected delta")
		return
	}
	if err != nil {
		c.metrics.Partial.Inc()
		c.logger.WithError(err).WithField("hash", hash.Short()).Warn("Announce elected delta")
	}

	c.metrics.Published.Inc()
	c.logger.WithFields(logrus.Fields{
		"prev": prev.Short(),
		"hash": hash.Short(),
	}).Info("Published elected delta")
}

func (c *Consensus) onVotingCollecting(prev delta.Hash) {
	var winner delta.Hash
	if w, ok := c.Winner(prev); ok {
		winner = w.Hash
	}
	c.cache.EvictCycle(prev, winner)
}

// SetElectedHandler registers f to be called once this node has decided the
// cycle built on prev, with or without a winner.
func (c *Consensus) SetElectedHandler(f func(prev delta.Hash)) {
	c.winnerLock.Lock()
	defer c.winnerLock.Unlock()
	c.onElected = f
}

// Decided tells whether the Voting phase of the cycle built on prev has
// produced a local decision.
func (c *Consensus) Decided(prev delta.Hash) bool {
	c.winnerLock.RLock()
	defer c.winnerLock.RUnlock()

	_, ok := c.winners.get(prev)
	return ok
}

// Winner returns the candidate elected locally for the cycle built on prev.
func (c *Consensus) Winner(prev delta.Hash) (*delta.CandidateDelta, bool) {
	c.winnerLock.RLock()
	defer c.winnerLock.RUnlock()

	w, ok := c.winners.get(prev)
	if !ok || w == nil {
		return nil, false
	}
	cp := *w
	return &cp, true
}
