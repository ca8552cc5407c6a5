// Package node implements the reactive component of a Cadence node.
//
// A node wires the cycle scheduler, the consensus orchestrator, the caches and
// the hash-chain index to a network transport, a DFS store and an application
// proxy. Node implements a state machine where the states are defined in the
// state package.
//
// Producers and Observers
//
// A node whose public key belongs to the producer set (peers.json) enters the
// Producing state. It takes part in every cycle: it builds a candidate from
// its mempool, broadcasts it, votes for the best candidate it has seen, tallies
// the votes of the other producers and, when its own candidate is elected,
// publishes the delta to the DFS and announces its address.
//
// Any other node enters the Observing state. It never builds or votes, but it
// follows the hash chain by processing the announcements of the producers.
//
// RPC
//
// The communication mechanism is a custom RPC protocol over network transport
// as defined in the net package. Candidates are routed to the voter, and
// favourites to the elector. Announcements go through the confirm path: the
// announced delta is fetched (locally or from the other producers), its
// previous hash is checked, and it is appended to the hash chain if it extends
// the current tip. Accepted deltas are committed to the application in chain
// order and their transactions are dropped from the mempool. FetchDelta
// requests are served from the local DFS.
package node
