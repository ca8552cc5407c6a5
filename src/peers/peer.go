package peers

import (
	"github.com/mosaicnetworks/cadence/src/common"
)

// Peer is a producer of the network.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string

	id uint32
}

// NewPeer ...
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// ID returns a 32-bit digest of the public key, used in logs and on the wire
// where the full key would be too verbose.
func (p *Peer) ID() uint32 {
	if p.id == 0 {
		pubKey, err := p.PubKeyBytes()
		if err != nil {
			return 0
		}
		p.id = common.Hash32(pubKey)
	}
	return p.id
}

// PubKeyString returns the producer identifier.
func (p *Peer) PubKeyString() string {
	return p.PubKeyHex
}

// PubKeyBytes decodes the public key.
func (p *Peer) PubKeyBytes() ([]byte, error) {
	return common.DecodeFromString(p.PubKeyHex)
}

// ExcludePeer is used to exclude a single peer, identified by its public key,
// from a list of peers.
func ExcludePeer(peers []*Peer, pubKey string) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.PubKeyHex != pubKey {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
