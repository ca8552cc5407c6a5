// Package hub moves consensus messages between producers and publishes
// elected deltas to the DFS.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/dfs"
	"github.com/mosaicnetworks/cadence/src/net"
	"github.com/mosaicnetworks/cadence/src/peers"
	"github.com/sirupsen/logrus"
)

// Inbound receives the messages this node sends to itself.
type Inbound interface {
	OnCandidate(candidate *delta.CandidateDelta)
	OnFavourite(favourite *delta.FavouriteDelta)
	OnDeltaAddress(fromID uint32, previousDeltaHash, hash delta.Hash)
}

// Config ...
type Config struct {
	// PublishRetries is the number of extra attempts at storing a delta.
	PublishRetries int
	// RetryBackoff is the pause between two attempts.
	RetryBackoff time.Duration
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		PublishRetries: 3,
		RetryBackoff:   200 * time.Millisecond,
	}
}

// Hub implements the consensus DeltaHub on top of a Transport and a DFS
// Store, and is the DFS reader of the delta cache.
type Hub struct {
	conf Config

	id     uint32
	pubKey string

	peers   *peers.PeerSet
	trans   net.Transport
	store   dfs.Store
	inbound Inbound

	logger *logrus.Entry
}

// New ...
func New(conf Config,
	pubKey string,
	peerSet *peers.PeerSet,
	trans net.Transport,
	store dfs.Store,
	logger *logrus.Entry) *Hub {

	self := peers.NewPeer(pubKey, "", "")

	return &Hub{
		conf:   conf,
		id:     self.ID(),
		pubKey: pubKey,
		peers:  peerSet,
		trans:  trans,
		store:  store,
		logger: logger.WithField("prefix", "hub"),
	}
}

// SetInbound registers the local receiver of loopback messages.
func (h *Hub) SetInbound(inbound Inbound) {
	h.inbound = inbound
}

// ID is the wire identifier of this node.
func (h *Hub) ID() uint32 {
	return h.id
}

// BroadcastCandidate delivers the candidate locally, then to every other
// producer.
func (h *Hub) BroadcastCandidate(candidate *delta.CandidateDelta) error {
	if candidate == nil {
		return delta.ErrNilCandidate
	}

	if h.inbound != nil {
		h.inbound.OnCandidate(candidate)
	}

	args := &net.CandidateRequest{FromID: h.id, Candidate: *candidate}

	return h.broadcast("Candidate", func(target string) error {
		var out net.GossipResponse
		return h.trans.Candidate(target, args, &out)
	})
}

// BroadcastFavourite delivers the favourite locally, then to every other
// producer.
func (h *Hub) BroadcastFavourite(favourite *delta.FavouriteDelta) error {
	if err := favourite.Validate(); err != nil {
		return err
	}

	if h.inbound != nil {
		h.inbound.OnFavourite(favourite)
	}

	args := &net.FavouriteRequest{FromID: h.id, Favourite: *favourite}

	return h.broadcast("Favourite", func(target string) error {
		var out net.GossipResponse
		return h.trans.Favourite(target, args, &out)
	})
}

// PublishDeltaAndBroadcastAddress stores d in the DFS and announces its
// address. The content address must match d.Hash(). Once the delta is stored
// its address is returned even if some producers could not be reached, along
// with the broadcast error.
func (h *Hub) PublishDeltaAndBroadcastAddress(ctx context.Context, d *delta.Delta) (delta.Hash, error) {
	expected, err := d.Hash()
	if err != nil {
		return delta.Hash{}, err
	}

	data, err := d.Marshal()
	if err != nil {
		return delta.Hash{}, err
	}

	address, err := h.put(ctx, data)
	if err != nil {
		return delta.Hash{}, err
	}

	if address != expected {
		return delta.Hash{}, common.NewStoreErr("DFS", common.HashMismatch, address.Hex())
	}

	if h.inbound != nil {
		h.inbound.OnDeltaAddress(h.id, d.PreviousDeltaHash, address)
	}

	args := &net.DeltaAddressRequest{
		FromID:            h.id,
		PreviousDeltaHash: d.PreviousDeltaHash,
		Hash:              address,
	}

	err = h.broadcast("DeltaAddress", func(target string) error {
		var out net.GossipResponse
		return h.trans.DeltaAddress(target, args, &out)
	})
	if err != nil {
		return address, fmt.Errorf("partial announcement of %s: %w", address.Short(), err)
	}

	return address, nil
}

func (h *Hub) put(ctx context.Context, data []byte) (delta.Hash, error) {
	var lastErr error

	for attempt := 0; attempt <= h.conf.PublishRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(h.conf.RetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return delta.Hash{}, fmt.Errorf("publish aborted: %v", lastErr)
			case <-timer.C:
			}
		}

		address, err := h.store.Put(ctx, data)
		if err == nil {
			return address, nil
		}

		lastErr = err
		h.logger.WithError(err).WithField("attempt", attempt+1).Warn("DFS Put")
	}

	return delta.Hash{}, fmt.Errorf("publish failed after %d attempts: %v", h.conf.PublishRetries+1, lastErr)
}

// broadcast calls send for every other producer in parallel and joins the
// errors.
func (h *Hub) broadcast(what string, send func(target string) error) error {
	others := h.peers.Others(h.pubKey)

	var wg sync.WaitGroup
	errs := make([]error, len(others))

	for i, p := range others {
		wg.Add(1)
		go func(i int, p *peers.Peer) {
			defer wg.Done()
			if err := send(p.NetAddr); err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"to":  p.ID(),
					"rpc": what,
				}).Debug("Broadcast")
				errs[i] = fmt.Errorf("%s to %d: %v", what, p.ID(), err)
			}
		}(i, p)
	}

	wg.Wait()

	return errors.Join(errs...)
}

// TryReadDelta reads the delta from the local DFS, or fetches it from the
// other producers. Remote content is verified and stored locally.
func (h *Hub) TryReadDelta(ctx context.Context, hash delta.Hash) (*delta.Delta, bool) {
	d, err := dfs.ReadDelta(ctx, h.store, hash)
	if err == nil {
		return d, true
	}
	if !common.IsStore(err, common.KeyNotFound) {
		h.logger.WithError(err).WithField("hash", hash.Short()).Warn("Local DFS read")
	}

	args := &net.FetchDeltaRequest{FromID: h.id, Hash: hash}

	for _, p := range h.peers.Others(h.pubKey) {
		if ctx.Err() != nil {
			return nil, false
		}

		var resp net.FetchDeltaResponse
		if err := h.trans.FetchDelta(p.NetAddr, args, &resp); err != nil {
			h.logger.WithError(err).WithField("from", p.ID()).Debug("FetchDelta")
			continue
		}
		if !resp.Found {
			continue
		}

		d, err := dfs.DecodeDelta(hash, resp.Data)
		if err != nil {
			h.logger.WithError(err).WithField("from", p.ID()).Warn("Invalid fetched delta")
			continue
		}

		if _, err := h.store.Put(ctx, resp.Data); err != nil {
			h.logger.WithError(err).Warn("Store fetched delta")
		}

		return d, true
	}

	return nil, false
}

// ServeFetch answers a FetchDeltaRequest from the local DFS.
func (h *Hub) ServeFetch(ctx context.Context, req *net.FetchDeltaRequest) (*net.FetchDeltaResponse, error) {
	resp := &net.FetchDeltaResponse{FromID: h.id}

	data, err := h.store.Get(ctx, req.Hash)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return resp, nil
		}
		return resp, err
	}

	resp.Found = true
	resp.Data = data

	return resp, nil
}
