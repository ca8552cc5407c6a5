// Package delta defines the data exchanged during a Cadence cycle.
//
// A Delta is a ledger update built on top of the current tip of the hash
// chain. Producers do not gossip deltas directly. During the construction
// phase each producer broadcasts a CandidateDelta, which only carries the hash
// of the delta it built, the previous delta hash, and its own identifier.
// During the campaigning phase each producer broadcasts a FavouriteDelta, its
// single vote for the best candidate it has seen. The candidate with the most
// votes wins the voting phase, and only its author holds the full content
// that must be published to the DFS.
//
// Candidates are ranked by a fixed total order (CompareHashes), which is part
// of the protocol: all producers must use the same order to converge on the
// same favourite.
package delta
