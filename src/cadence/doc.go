// Package cadence wires the components of a Cadence node from a flat
// configuration: the producer key, the producer set read from peers.json, the
// DFS store, the TCP transport, the node itself and the optional HTTP service.
package cadence
