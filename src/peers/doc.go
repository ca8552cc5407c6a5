// Package peers defines the producers of a Cadence network.
//
// Cadence is a permissioned ledger: the set of producers that may build
// candidate deltas and vote for them is fixed and known in advance. Upon
// starting up, a node reads the producer set from the peers.json file in its
// data directory. A node whose public key is not part of that set runs as an
// observer: it follows the hash chain but never produces or votes.
//
// Producers are identified by the 0X prefixed hexadecimal representation of
// their uncompressed public key, and optionally by a moniker which is a
// non-unique user-friendly name.
package peers
