package node

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/cadence/src/consensus"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/deltacache"
	"github.com/mosaicnetworks/cadence/src/deltahash"
	"github.com/mosaicnetworks/cadence/src/dfs"
	"github.com/mosaicnetworks/cadence/src/hub"
	"github.com/mosaicnetworks/cadence/src/mempool"
	"github.com/mosaicnetworks/cadence/src/net"
	"github.com/mosaicnetworks/cadence/src/node/state"
	"github.com/mosaicnetworks/cadence/src/peers"
	"github.com/mosaicnetworks/cadence/src/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

//Node defines a cadence node
type Node struct {
	// The node's state and its bounded pool of goroutines
	state.Manager

	conf   *Config
	logger *logrus.Entry

	validator *Validator
	peers     *peers.PeerSet

	trans net.Transport
	netCh <-chan net.RPC

	proxy    proxy.AppProxy
	submitCh chan proxy.Transaction

	store     dfs.Store
	mempool   *mempool.Pool
	hashes    *deltahash.Provider
	cache     *deltacache.Cache
	scheduler *cycle.Scheduler
	voter     *consensus.Voter
	elector   *consensus.Elector
	consensus *consensus.Consensus
	hub       *hub.Hub
	metrics   *consensus.Metrics

	// announcements received before this producer decided their cycle
	held *heldAnnouncements

	// confirmLock serialises hash-chain updates with the commits to the
	// application, so deltas reach the application in chain order
	confirmLock sync.Mutex

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	start time.Time
}

//NewNode is a factory method that returns a Node instance
func NewNode(conf *Config,
	validator *Validator,
	peers *peers.PeerSet,
	store dfs.Store,
	trans net.Transport,
	proxy proxy.AppProxy,
) (*Node, error) {

	logger := conf.Logger.WithField("this_id", validator.ID())
	producerID := validator.PublicKeyHex()

	node := &Node{
		conf:       conf,
		logger:     logger,
		validator:  validator,
		peers:      peers,
		trans:      trans,
		netCh:      trans.Consumer(),
		proxy:      proxy,
		submitCh:   proxy.SubmitCh(),
		store:      store,
		shutdownCh: make(chan struct{}),
	}

	var registerer prometheus.Registerer
	if conf.Registry != nil {
		registerer = conf.Registry
	}
	node.metrics = consensus.NewMetrics(registerer)

	node.held = newHeldAnnouncements(conf.Consensus.MaxCycles, peers.Len())

	node.mempool = mempool.NewPool(conf.MempoolSize, logger)

	node.hashes = deltahash.New(conf.HashChainSize,
		conf.Genesis,
		conf.Cycle.Epoch,
		conf.Clock,
		logger)

	node.hub = hub.New(conf.Hub, producerID, peers, trans, store, logger)
	node.hub.SetInbound(node)

	cache, err := deltacache.New(producerID,
		conf.Consensus.MaxCycles,
		conf.ConfirmedCacheSize,
		node.hub,
		logger)
	if err != nil {
		return nil, err
	}
	node.cache = cache

	scheduler, err := cycle.NewScheduler(conf.Cycle, conf.Clock, node.hashes, logger)
	if err != nil {
		return nil, err
	}
	node.scheduler = scheduler

	node.voter = consensus.NewVoter(producerID, peers, conf.Consensus.MaxCycles, logger)
	node.elector = consensus.NewElector(peers, conf.Consensus.MaxCycles, logger)

	builder := consensus.NewBuilder(producerID,
		node.mempool,
		conf.Clock,
		conf.MaxTransactions,
		conf.SkipEmpty,
		logger)

	node.consensus = consensus.NewConsensus(conf.Consensus,
		builder,
		node.voter,
		node.elector,
		node.cache,
		node.hub,
		node.scheduler,
		phaseLauncher{&node.Manager},
		node.metrics,
		logger)
	node.consensus.SetElectedHandler(node.onElected)

	return node, nil
}

// phaseLauncher runs the consensus handlers on the goroutines reserved for
// phases.
type phaseLauncher struct {
	m *state.Manager
}

func (l phaseLauncher) GoFunc(f func()) bool {
	return l.m.GoPhase(f)
}

//Init sets the initial state of the node, depending on whether it belongs to
//the producer set
func (n *Node) Init() error {
	if n.peers.IsProducer(n.validator.PublicKeyHex()) {
		n.logger.Debug("Node belongs to PeerSet => Producing")
		n.setState(state.Producing)
	} else {
		n.logger.Debug("Node does not belong to PeerSet => Observing")
		n.setState(state.Observing)
	}

	return nil
}

func (n *Node) setState(s state.State) {
	n.SetState(s)
	if err := n.proxy.OnStateChanged(s); err != nil {
		n.logger.WithError(err).Error("OnStateChanged")
	}
}

//RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	n.logger.Debug("runasync")

	go n.Run()
}

//Run starts the cycle and processes network and application events until the
//node is shut down
func (n *Node) Run() {
	n.start = time.Now()

	if n.GetState() == state.Producing {
		n.consensus.Start()
	}
	n.scheduler.Start()

	n.doBackgroundWork()
}

func (n *Node) doBackgroundWork() {
	for {
		select {
		case rpc := <-n.netCh:
			if !n.GoFunc(func() { n.processRPC(rpc) }) {
				n.logger.Warn("Worker pool exhausted, refusing RPC")
				rpc.Respond(nil, fmt.Errorf("node busy"))
			}
		case tx := <-n.submitCh:
			n.addTransaction(tx)
		case <-n.shutdownCh:
			return
		}
	}
}

func (n *Node) addTransaction(tx proxy.Transaction) {
	if err := n.mempool.Add(tx.Data, tx.Priority); err != nil {
		n.logger.WithError(err).Warn("Dropping transaction")
		return
	}
	n.logger.Debug("Added Transaction")
}

/*******************************************************************************
* Inbound messages                                                             *
*******************************************************************************/

//OnCandidate routes a candidate to the voter
func (n *Node) OnCandidate(candidate *delta.CandidateDelta) {
	if n.GetState() != state.Producing {
		return
	}
	n.voter.OnNext(candidate)
}

//OnFavourite routes a favourite to the elector
func (n *Node) OnFavourite(favourite *delta.FavouriteDelta) {
	if n.GetState() != state.Producing {
		return
	}
	n.elector.OnNext(favourite)
}

//OnDeltaAddress runs the confirm path for an announced delta
func (n *Node) OnDeltaAddress(fromID uint32, previousDeltaHash, hash delta.Hash) {
	n.confirm(fromID, previousDeltaHash, hash)
}

// confirm appends an announced delta to the hash chain, and commits it to the
// application, if it extends the current tip. It reports whether the delta is
// on the chain.
func (n *Node) confirm(fromID uint32, prev, hash delta.Hash) bool {
	logger := n.logger.WithFields(logrus.Fields{
		"from_id": fromID,
		"prev":    prev.Short(),
		"hash":    hash.Short(),
	})

	from, ok := n.peers.ByID[fromID]
	if !ok {
		logger.Warn("Announcement from unknown producer")
		return false
	}

	if n.GetState() == state.Producing {
		undecided, kept := n.held.holdUnlessDecided(n.consensus.Decided, prev,
			announcement{fromID: fromID, hash: hash})
		if undecided {
			if kept {
				logger.Debug("Holding announcement until the cycle is decided")
			} else {
				logger.Warn("Too many announcements for an undecided cycle")
			}
			return false
		}

		winner, ok := n.consensus.Winner(prev)
		if ok && (winner.Hash != hash || winner.ProducerID != from.PubKeyHex) {
			logger.WithField("winner", winner.Hash.Short()).Warn("Announcement disagrees with local election")
			return false
		}
	}

	if n.hashes.Contains(hash) {
		logger.Debug("Delta already on the chain")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.conf.FetchTimeout)
	defer cancel()

	// This producer's own winner is served from its local entries.
	d, ok := n.cache.TryGetLocalDelta(&delta.CandidateDelta{
		Hash:              hash,
		PreviousDeltaHash: prev,
		ProducerID:        from.PubKeyHex,
	})
	if !ok {
		d, ok = n.cache.TryGetConfirmedDelta(ctx, hash)
	}
	if !ok {
		logger.Warn("Announced delta not found")
		return false
	}

	if d.PreviousDeltaHash != prev {
		logger.WithField("delta_prev", d.PreviousDeltaHash.Short()).Warn("Announced delta has a different previous hash")
		return false
	}

	n.confirmLock.Lock()
	defer n.confirmLock.Unlock()

	if !n.hashes.TryUpdateLatestHash(prev, hash) {
		n.metrics.ChainRejections.Inc()
		logger.WithField("tip", n.hashes.LatestDeltaHash().Short()).Warn("Announced delta does not extend the chain tip")
		return false
	}

	n.cache.AddConfirmedDelta(hash, d)
	removed := n.mempool.Remove(d.Transactions)
	n.metrics.Confirmed.Inc()

	if _, err := n.proxy.CommitDelta(hash, *d); err != nil {
		logger.WithError(err).Error("CommitDelta")
	}

	logger.WithFields(logrus.Fields{
		"transactions": len(d.Transactions),
		"removed":      removed,
	}).Info("Confirmed delta")

	return true
}

// onElected replays the announcements held for the cycle built on prev, now
// that this producer has decided it.
func (n *Node) onElected(prev delta.Hash) {
	for _, a := range n.held.release(prev) {
		a := a
		if !n.GoFunc(func() { n.confirm(a.fromID, prev, a.hash) }) {
			n.logger.WithField("hash", a.hash.Short()).Warn("Worker pool exhausted, dropping held announcement")
		}
	}
}

/*******************************************************************************
* Shutdown and accessors                                                       *
*******************************************************************************/

//Shutdown stops the cycle and the consensus, waits for the running routines,
//then closes the transport and the store
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		n.setState(state.Shutdown)

		n.scheduler.Stop()
		n.consensus.Stop()

		//Stop and wait for concurrent operations
		close(n.shutdownCh)
		n.WaitRoutines()

		//transport and store should only be closed once all concurrent
		//operations are finished
		n.trans.Close()
		n.hashes.Close()

		if err := n.store.Close(); err != nil {
			n.logger.WithError(err).Error("Closing store")
		}
	})
}

//GetStats returns information about the node.
func (n *Node) GetStats() map[string]string {
	now := n.conf.Clock.Now()

	cycleIndex, phase, status, inPhase := n.conf.Cycle.PhaseAt(now)
	phaseString := "idle"
	if inPhase {
		phaseString = fmt.Sprintf("%s-%s", phase, status)
	}

	latest := n.hashes.Latest()

	s := map[string]string{
		"id":                 fmt.Sprint(n.validator.ID()),
		"moniker":            n.validator.Moniker,
		"state":              n.GetState().String(),
		"num_peers":          strconv.Itoa(n.peers.Len()),
		"cycle":              strconv.FormatInt(cycleIndex, 10),
		"phase":              phaseString,
		"latest_delta":       latest.Hash.Hex(),
		"latest_accepted":    latest.AcceptedAt.UTC().Format(time.RFC3339Nano),
		"hash_chain":         strconv.Itoa(n.hashes.Len()),
		"transaction_pool":   strconv.Itoa(n.mempool.Len()),
		"local_deltas":       strconv.Itoa(n.cache.LocalLen()),
		"confirmed_deltas":   strconv.Itoa(n.cache.ConfirmedLen()),
		"routines":           strconv.Itoa(n.Running()),
		"held_announcements": strconv.Itoa(n.held.len()),
		"time_elapsed":       strconv.FormatFloat(time.Since(n.start).Seconds(), 'f', 2, 64),
	}
	return s
}

//ID returns the wire identifier of the node
func (n *Node) ID() uint32 {
	return n.validator.ID()
}

//GetPeers returns the producer set
func (n *Node) GetPeers() []*peers.Peer {
	return n.peers.Peers
}

//GetLatestDeltaHash returns the hash of the latest delta accepted at or
//before asOf
func (n *Node) GetLatestDeltaHash(asOf time.Time) delta.Hash {
	return n.hashes.GetLatestDeltaHash(asOf)
}

//GetHashChain returns the entries of the hash-chain index, oldest first
func (n *Node) GetHashChain() []delta.HashChainEntry {
	return n.hashes.Entries()
}

//GetDelta returns a confirmed delta, reading it from the DFS if needed
func (n *Node) GetDelta(ctx context.Context, hash delta.Hash) (*delta.Delta, bool) {
	return n.cache.TryGetConfirmedDelta(ctx, hash)
}

//SubscribeHashChain returns the stream of accepted hash-chain entries
func (n *Node) SubscribeHashChain() (<-chan delta.HashChainEntry, func()) {
	return n.hashes.Subscribe()
}

//Winner returns the candidate this node elected for the cycle built on prev
func (n *Node) Winner(prev delta.Hash) (*delta.CandidateDelta, bool) {
	return n.consensus.Winner(prev)
}

//Registry returns the prometheus registry of the node's metrics
func (n *Node) Registry() *prometheus.Registry {
	return n.conf.Registry
}
