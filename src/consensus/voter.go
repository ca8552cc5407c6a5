package consensus

import (
	"sync"

	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

type votingCycle struct {
	candidates map[delta.Hash]*delta.CandidateDelta
	favourite  *delta.FavouriteDelta
	decided    bool
}

// Voter derives this node's favourite from the candidates broadcast during a
// cycle. Its choice only depends on the set of candidates observed before the
// decision, not on their arrival order or duplication.
type Voter struct {
	sync.Mutex

	voterID   string
	producers ProducerSet
	cycles    *cycleWindow[*votingCycle]
	logger    *logrus.Entry
}

// NewVoter creates a Voter for voterID that remembers at most maxCycles
// cycles. Candidates from identifiers outside producers are ignored; a nil
// producers accepts everyone.
func NewVoter(voterID string, producers ProducerSet, maxCycles int, logger *logrus.Entry) *Voter {
	return &Voter{
		voterID:   voterID,
		producers: producers,
		cycles:    newCycleWindow[*votingCycle]("VoterCycles", maxCycles),
		logger:    logger.WithField("prefix", "voter"),
	}
}

// OnNext ingests a candidate received from the network.
func (v *Voter) OnNext(candidate *delta.CandidateDelta) {
	if err := candidate.Validate(); err != nil {
		v.logger.WithError(err).Debug("Invalid candidate")
		return
	}

	if v.producers != nil && !v.producers.IsProducer(candidate.ProducerID) {
		v.logger.WithField("producer", candidate.ProducerID).Debug("Candidate from unknown producer")
		return
	}

	v.Lock()
	defer v.Unlock()

	c := v.cycles.getOrCreate(candidate.PreviousDeltaHash, newVotingCycle)

	if c.decided {
		v.logger.WithField("candidate", candidate.String()).Debug("Candidate arrived after the vote")
		return
	}

	if existing, ok := c.candidates[candidate.Hash]; ok && !delta.Preferred(candidate, existing) {
		return
	}

	cp := *candidate
	c.candidates[candidate.Hash] = &cp
}

// TryGetFavouriteDelta returns this node's favourite for the cycle built on
// previousDeltaHash. The decision is taken on the first call and frozen;
// later calls return the same result and later candidates are ignored.
func (v *Voter) TryGetFavouriteDelta(previousDeltaHash delta.Hash) (*delta.FavouriteDelta, bool) {
	v.Lock()
	defer v.Unlock()

	c := v.cycles.getOrCreate(previousDeltaHash, newVotingCycle)

	if !c.decided {
		c.decided = true

		candidates := make([]*delta.CandidateDelta, 0, len(c.candidates))
		for _, cand := range c.candidates {
			candidates = append(candidates, cand)
		}

		if best := delta.Best(candidates); best != nil {
			cp := *best
			c.favourite = &delta.FavouriteDelta{
				Candidate: &cp,
				VoterID:   v.voterID,
			}
		}

		v.logger.WithFields(logrus.Fields{
			"prev":       previousDeltaHash.Short(),
			"candidates": len(candidates),
			"favourite":  favouriteString(c.favourite),
		}).Debug("Voted")
	}

	if c.favourite == nil {
		return nil, false
	}

	fav := *c.favourite
	cand := *fav.Candidate
	fav.Candidate = &cand
	return &fav, true
}

// CandidateCount returns the number of distinct candidates observed for the
// cycle built on previousDeltaHash.
func (v *Voter) CandidateCount(previousDeltaHash delta.Hash) int {
	v.Lock()
	defer v.Unlock()

	c, ok := v.cycles.get(previousDeltaHash)
	if !ok {
		return 0
	}
	return len(c.candidates)
}

func newVotingCycle() *votingCycle {
	return &votingCycle{candidates: make(map[delta.Hash]*delta.CandidateDelta)}
}

func favouriteString(f *delta.FavouriteDelta) string {
	if f == nil {
		return "none"
	}
	return f.Candidate.Hash.Short()
}
