package consensus

import (
	"sync"

	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

type electionCycle struct {
	votes   map[string]*delta.CandidateDelta // voter => candidate
	winner  *delta.CandidateDelta
	decided bool
}

// Elector tallies the favourites broadcast during a cycle. Each voter counts
// once per cycle: when a voter sends different favourites, the one whose
// candidate ranks highest is kept, so the tally does not depend on delivery
// order.
type Elector struct {
	sync.Mutex

	producers ProducerSet
	cycles    *cycleWindow[*electionCycle]
	logger    *logrus.Entry
}

// NewElector creates an Elector that remembers at most maxCycles cycles.
// Favourites from voters outside producers are ignored; a nil producers
// accepts everyone.
func NewElector(producers ProducerSet, maxCycles int, logger *logrus.Entry) *Elector {
	return &Elector{
		producers: producers,
		cycles:    newCycleWindow[*electionCycle]("ElectorCycles", maxCycles),
		logger:    logger.WithField("prefix", "elector"),
	}
}

// OnNext ingests a favourite received from the network, including this
// node's own.
func (e *Elector) OnNext(favourite *delta.FavouriteDelta) {
	if err := favourite.Validate(); err != nil {
		e.logger.WithError(err).Debug("Invalid favourite")
		return
	}

	if e.producers != nil &&
		(!e.producers.IsProducer(favourite.VoterID) || !e.producers.IsProducer(favourite.Candidate.ProducerID)) {
		e.logger.WithField("voter", favourite.VoterID).Debug("Favourite from unknown producer")
		return
	}

	e.Lock()
	defer e.Unlock()

	c := e.cycles.getOrCreate(favourite.Candidate.PreviousDeltaHash, newElectionCycle)

	if c.decided {
		e.logger.WithField("voter", favourite.VoterID).Debug("Favourite arrived after the election")
		return
	}

	existing, ok := c.votes[favourite.VoterID]
	if ok && !delta.Preferred(favourite.Candidate, existing) {
		return
	}
	if ok {
		e.logger.WithFields(logrus.Fields{
			"voter":    favourite.VoterID,
			"previous": existing.Hash.Short(),
			"new":      favourite.Candidate.Hash.Short(),
		}).Warn("Voter changed favourite")
	}

	cp := *favourite.Candidate
	c.votes[favourite.VoterID] = &cp
}

// GetMostPopularCandidateDelta returns the candidate with the most votes for
// the cycle built on previousDeltaHash, ties broken by rank, or nil if no
// favourite was observed. The result is frozen on the first call.
func (e *Elector) GetMostPopularCandidateDelta(previousDeltaHash delta.Hash) *delta.CandidateDelta {
	e.Lock()
	defer e.Unlock()

	c := e.cycles.getOrCreate(previousDeltaHash, newElectionCycle)

	if !c.decided {
		c.decided = true
		c.winner = tally(c.votes)

		fields := logrus.Fields{
			"prev":  previousDeltaHash.Short(),
			"votes": len(c.votes),
		}
		if c.winner != nil {
			fields["winner"] = c.winner.Hash.Short()
		}
		e.logger.WithFields(fields).Debug("Elected")
	}

	if c.winner == nil {
		return nil
	}
	cp := *c.winner
	return &cp
}

// Votes returns the number of voters counted for the cycle built on
// previousDeltaHash.
func (e *Elector) Votes(previousDeltaHash delta.Hash) int {
	e.Lock()
	defer e.Unlock()

	c, ok := e.cycles.get(previousDeltaHash)
	if !ok {
		return 0
	}
	return len(c.votes)
}

func tally(votes map[string]*delta.CandidateDelta) *delta.CandidateDelta {
	counts := make(map[delta.Hash]int)
	representatives := make(map[delta.Hash]*delta.CandidateDelta)

	for _, cand := range votes {
		counts[cand.Hash]++
		if delta.Preferred(cand, representatives[cand.Hash]) {
			representatives[cand.Hash] = cand
		}
	}

	var (
		winner *delta.CandidateDelta
		best   int
	)
	for hash, count := range counts {
		cand := representatives[hash]
		if count > best || (count == best && delta.Preferred(cand, winner)) {
			winner, best = cand, count
		}
	}

	return winner
}

func newElectionCycle() *electionCycle {
	return &electionCycle{votes: make(map[string]*delta.CandidateDelta)}
}
