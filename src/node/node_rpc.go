package node

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/cadence/src/net"
	"github.com/mosaicnetworks/cadence/src/node/state"
	"github.com/sirupsen/logrus"
)

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.CandidateRequest:
		n.processCandidateRequest(rpc, cmd)
	case *net.FavouriteRequest:
		n.processFavouriteRequest(rpc, cmd)
	case *net.DeltaAddressRequest:
		n.processDeltaAddressRequest(rpc, cmd)
	case *net.FetchDeltaRequest:
		n.processFetchDeltaRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

// fromProducer reports whether the sender belongs to the producer set, and
// whether this node takes part in the cycle.
func (n *Node) fromProducer(fromID uint32) bool {
	_, ok := n.peers.ByID[fromID]
	return ok && n.GetState() == state.Producing
}

func (n *Node) processCandidateRequest(rpc net.RPC, cmd *net.CandidateRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id":   cmd.FromID,
		"candidate": cmd.Candidate.String(),
	}).Debug("process CandidateRequest")

	accepted := n.fromProducer(cmd.FromID)
	if accepted {
		candidate := cmd.Candidate
		n.voter.OnNext(&candidate)
	}

	rpc.Respond(&net.GossipResponse{FromID: n.validator.ID(), Accepted: accepted}, nil)
}

func (n *Node) processFavouriteRequest(rpc net.RPC, cmd *net.FavouriteRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id": cmd.FromID,
		"voter":   cmd.Favourite.VoterID,
	}).Debug("process FavouriteRequest")

	accepted := n.fromProducer(cmd.FromID)
	if accepted {
		favourite := cmd.Favourite
		n.elector.OnNext(&favourite)
	}

	rpc.Respond(&net.GossipResponse{FromID: n.validator.ID(), Accepted: accepted}, nil)
}

func (n *Node) processDeltaAddressRequest(rpc net.RPC, cmd *net.DeltaAddressRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id": cmd.FromID,
		"prev":    cmd.PreviousDeltaHash.Short(),
		"hash":    cmd.Hash.Short(),
	}).Debug("process DeltaAddressRequest")

	accepted := n.confirm(cmd.FromID, cmd.PreviousDeltaHash, cmd.Hash)

	rpc.Respond(&net.GossipResponse{FromID: n.validator.ID(), Accepted: accepted}, nil)
}

func (n *Node) processFetchDeltaRequest(rpc net.RPC, cmd *net.FetchDeltaRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id": cmd.FromID,
		"hash":    cmd.Hash.Short(),
	}).Debug("process FetchDeltaRequest")

	ctx, cancel := context.WithTimeout(context.Background(), n.conf.FetchTimeout)
	defer cancel()

	resp, err := n.hub.ServeFetch(ctx, cmd)
	if err != nil {
		n.logger.WithError(err).Error("Serving FetchDelta")
	}

	rpc.Respond(resp, err)
}
