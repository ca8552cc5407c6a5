package net

// Transport provides an interface for network transports
// to allow a node to communicate with other nodes.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Candidate, Favourite, DeltaAddress and FetchDelta send the appropriate
	// RPC to the target node.

	Candidate(target string, args *CandidateRequest, resp *GossipResponse) error

	Favourite(target string, args *FavouriteRequest, resp *GossipResponse) error

	DeltaAddress(target string, args *DeltaAddressRequest, resp *GossipResponse) error

	FetchDelta(target string, args *FetchDeltaRequest, resp *FetchDeltaResponse) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
