package net

import (
	"github.com/mosaicnetworks/cadence/src/delta"
)

// CandidateRequest carries a candidate built by the sender.
type CandidateRequest struct {
	FromID    uint32
	Candidate delta.CandidateDelta
}

// FavouriteRequest carries the sender's vote.
type FavouriteRequest struct {
	FromID    uint32
	Favourite delta.FavouriteDelta
}

// DeltaAddressRequest announces that the delta Hash, built on
// PreviousDeltaHash, was published to the sender's DFS.
type DeltaAddressRequest struct {
	FromID            uint32
	PreviousDeltaHash delta.Hash
	Hash              delta.Hash
}

// GossipResponse acknowledges a Candidate, Favourite or DeltaAddress request.
// Accepted is informational; the sender does not act on it.
type GossipResponse struct {
	FromID   uint32
	Accepted bool
}

// FetchDeltaRequest asks for the encoded delta stored at Hash.
type FetchDeltaRequest struct {
	FromID uint32
	Hash   delta.Hash
}

// FetchDeltaResponse returns the encoded delta, if the responder has it.
type FetchDeltaResponse struct {
	FromID uint32
	Found  bool
	Data   []byte
}
