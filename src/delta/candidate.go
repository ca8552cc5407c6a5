package delta

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNilCandidate ...
	ErrNilCandidate = errors.New("nil candidate delta")
	// ErrNilFavourite ...
	ErrNilFavourite = errors.New("nil favourite delta")
)

// CandidateDelta identifies a proposed Delta without carrying its content.
type CandidateDelta struct {
	Hash              Hash
	PreviousDeltaHash Hash
	ProducerID        string
}

// Validate checks that the candidate is well formed.
func (c *CandidateDelta) Validate() error {
	if c == nil {
		return ErrNilCandidate
	}
	if c.Hash.IsZero() {
		return fmt.Errorf("candidate from %s has an empty hash", c.ProducerID)
	}
	if c.ProducerID == "" {
		return fmt.Errorf("candidate %s has no producer", c.Hash.Short())
	}
	return nil
}

// String ...
func (c *CandidateDelta) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("candidate{%s on %s}", c.Hash.Short(), c.PreviousDeltaHash.Short())
}

// FavouriteDelta is a producer's vote for the best candidate of a cycle.
type FavouriteDelta struct {
	Candidate *CandidateDelta
	VoterID   string
}

// Validate checks that the favourite and its candidate are well formed.
func (f *FavouriteDelta) Validate() error {
	if f == nil {
		return ErrNilFavourite
	}
	if f.VoterID == "" {
		return errors.New("favourite has no voter")
	}
	return f.Candidate.Validate()
}

// HashChainEntry records when a delta hash was accepted as the chain tip.
// Index counts the entries accepted since genesis, which has index 0.
type HashChainEntry struct {
	Index      int
	Hash       Hash
	AcceptedAt time.Time
}
