package consensus

import (
	"context"

	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
)

// TransactionSource supplies the transactions of a new delta.
type TransactionSource interface {
	GetTopTransactionsByPriority(maxCount int) [][]byte
}

// ProducerSet tells whether an identifier belongs to a permissioned producer.
type ProducerSet interface {
	IsProducer(id string) bool
}

// DeltaBuilder builds this node's candidate for a cycle. A nil candidate with
// a nil error is an abstention.
type DeltaBuilder interface {
	BuildCandidateDelta(previousDeltaHash delta.Hash) (*delta.CandidateDelta, *delta.Delta, error)
}

// DeltaVoter observes candidates and derives this node's favourite.
type DeltaVoter interface {
	OnNext(candidate *delta.CandidateDelta)
	TryGetFavouriteDelta(previousDeltaHash delta.Hash) (*delta.FavouriteDelta, bool)
}

// DeltaElector observes favourites and tallies them.
type DeltaElector interface {
	OnNext(favourite *delta.FavouriteDelta)
	GetMostPopularCandidateDelta(previousDeltaHash delta.Hash) *delta.CandidateDelta
}

// DeltaCache holds the content of locally built candidates.
type DeltaCache interface {
	AddLocalDelta(candidate *delta.CandidateDelta, d *delta.Delta) error
	TryGetLocalDelta(candidate *delta.CandidateDelta) (*delta.Delta, bool)
	EvictCycle(previousDeltaHash delta.Hash, winner delta.Hash)
}

// DeltaHub moves consensus messages to the other producers and publishes
// elected deltas. Retry policy belongs to the hub. A publication returning a
// non-zero hash with an error stored the delta but did not reach every
// producer.
type DeltaHub interface {
	BroadcastCandidate(candidate *delta.CandidateDelta) error
	BroadcastFavourite(favourite *delta.FavouriteDelta) error
	PublishDeltaAndBroadcastAddress(ctx context.Context, d *delta.Delta) (delta.Hash, error)
}

// PhaseSource emits the cycle transitions.
type PhaseSource interface {
	Subscribe() (<-chan cycle.Phase, func())
}

// Launcher runs phase handlers off the scheduler goroutine. It reports false
// if the function could not be launched.
type Launcher interface {
	GoFunc(f func()) bool
}
