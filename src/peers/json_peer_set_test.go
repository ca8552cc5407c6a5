package peers

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/mosaicnetworks/cadence/src/crypto/keys"
)

func newTestPeers(t *testing.T, n int) []*Peer {
	peers := []*Peer{}
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		peers = append(peers, NewPeer(
			keys.PublicKeyHex(&key.PublicKey),
			fmt.Sprintf("addr%d", i),
			fmt.Sprintf("peer%d", i),
		))
	}
	return peers
}

func TestJSONPeerSet(t *testing.T) {
	dir := t.TempDir()

	store := NewJSONPeerSet(dir)

	// Try a read, should get nothing
	peerSet, err := store.PeerSet()
	if err == nil {
		t.Fatalf("store.PeerSet() should generate an error")
	}
	if peerSet != nil {
		t.Fatalf("peerSet: %v", peerSet)
	}

	peers := newTestPeers(t, 3)

	// lower-case keys should be normalised on read
	written := make([]*Peer, len(peers))
	for i, p := range peers {
		written[i] = NewPeer(strings.ToLower(p.PubKeyHex), p.NetAddr, p.Moniker)
	}

	if err := store.Write(written); err != nil {
		t.Fatalf("err: %v", err)
	}

	peerSet, err = store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if peerSet.Len() != 3 {
		t.Fatalf("peers: %v", peerSet.Peers)
	}

	for i, p := range peers {
		if !reflect.DeepEqual(p.PubKeyHex, peerSet.Peers[i].PubKeyHex) {
			t.Fatalf("peer %d public key should be %s, not %s", i, p.PubKeyHex, peerSet.Peers[i].PubKeyHex)
		}
		if p.NetAddr != peerSet.Peers[i].NetAddr {
			t.Fatalf("peer %d address should be %s, not %s", i, p.NetAddr, peerSet.Peers[i].NetAddr)
		}
		if p.ID() != peerSet.Peers[i].ID() {
			t.Fatalf("peer %d ids do not match", i)
		}
	}
}

func TestPeerSet(t *testing.T) {
	peers := newTestPeers(t, 4)

	peerSet := NewPeerSet(peers)

	for _, p := range peers {
		if !peerSet.IsProducer(p.PubKeyHex) {
			t.Fatalf("%s should be a producer", p.Moniker)
		}
		if peerSet.ByID[p.ID()] != p {
			t.Fatalf("%s should be indexed by id", p.Moniker)
		}
	}

	if peerSet.IsProducer("0XDEADBEEF") {
		t.Fatalf("unknown keys are not producers")
	}

	others := peerSet.Others(peers[1].PubKeyHex)
	if len(others) != 3 {
		t.Fatalf("expected 3 other peers, got %d", len(others))
	}
	for _, o := range others {
		if o == peers[1] {
			t.Fatalf("excluded peer should not be in others")
		}
	}

	if !reflect.DeepEqual(peerSet.Hash(), NewPeerSet(peers).Hash()) {
		t.Fatalf("peer set hashes should be deterministic")
	}

	reversed := []*Peer{peers[3], peers[2], peers[1], peers[0]}
	if reflect.DeepEqual(peerSet.Hash(), NewPeerSet(reversed).Hash()) {
		t.Fatalf("peer set hash should depend on order")
	}
}
