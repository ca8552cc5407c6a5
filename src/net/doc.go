// Package net implements the transports that carry consensus messages between
// Cadence producers.
//
// A Transport sends four RPCs:
//
// - Candidate: pushes a CandidateDelta during the construction phase
//
// - Favourite: pushes a FavouriteDelta during the campaigning phase
//
// - DeltaAddress: announces the content address of a published delta
//
// - FetchDelta: pulls the content of a published delta from a peer's store
//
// There are two implementations. The InmemTransport routes RPCs in memory and
// is used for testing. The NetworkTransport runs over a StreamLayer, in
// practice plain TCP, and frames each request as a type byte followed by the
// msgpack encoded command.
//
// TCP
//
// - BindAddr: the IP:PORT of the TCP socket that Cadence binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes. If
// BindAddr is a local address not reachable by other peers, it is useful to
// set AdvertiseAddr to the reachable public address.
package net
