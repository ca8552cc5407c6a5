package dummy

import (
	"sync"

	"github.com/mosaicnetworks/cadence/src/crypto"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/node/state"
	"github.com/mosaicnetworks/cadence/src/proxy"
	"github.com/sirupsen/logrus"
)

// State represents the state of our dummy application. It implements the
// ProxyHandler interface for use with an InmemProxy. It doesn't really do
// anything useful but save and log delta transactions. The state hash is
// computed by cumulatively hashing transactions together as they come in.
type State struct {
	sync.RWMutex
	committedTxs [][]byte
	deltas       []delta.Hash
	stateHash    []byte
	cadenceState state.State
	logger       *logrus.Entry
}

// NewState creates a new dummy state.
func NewState(logger *logrus.Entry) *State {
	state := &State{
		committedTxs: [][]byte{},
		stateHash:    []byte{},
		logger:       logger,
	}

	logger.Info("Init Dummy State")

	return state
}

// CommitHandler implements the ProxyHandler interface. It is called once for
// every delta appended to the hash chain, in chain order, so every node
// observes the same transactions in the same order.
func (a *State) CommitHandler(hash delta.Hash, d delta.Delta) (proxy.CommitResponse, error) {
	a.Lock()
	defer a.Unlock()

	a.logger.WithFields(logrus.Fields{
		"hash": hash.Short(),
		"txs":  len(d.Transactions),
	}).Debug("CommitDelta")

	a.committedTxs = append(a.committedTxs, d.Transactions...)
	a.deltas = append(a.deltas, hash)

	// The state hash is computed by hashing all transactions together.
	h := a.stateHash
	for _, tx := range d.Transactions {
		a.logger.Info(string(tx))
		h = crypto.SimpleHashFromTwoHashes(h, crypto.SHA256(tx))
	}
	a.stateHash = h

	return proxy.CommitResponse{StateHash: a.stateHash}, nil
}

// StateChangeHandler implements the ProxyHandler interface
func (a *State) StateChangeHandler(state state.State) error {
	a.Lock()
	defer a.Unlock()

	a.cadenceState = state
	a.logger.WithField("state", state).Debug("StateChangeHandler")
	return nil
}

// GetCommittedTransactions returns the list of committed transactions
func (a *State) GetCommittedTransactions() [][]byte {
	a.RLock()
	defer a.RUnlock()

	res := make([][]byte, len(a.committedTxs))
	copy(res, a.committedTxs)
	return res
}

// GetCommittedDeltas returns the hashes of the committed deltas, in order
func (a *State) GetCommittedDeltas() []delta.Hash {
	a.RLock()
	defer a.RUnlock()

	res := make([]delta.Hash, len(a.deltas))
	copy(res, a.deltas)
	return res
}

// GetStateHash returns the current state hash
func (a *State) GetStateHash() []byte {
	a.RLock()
	defer a.RUnlock()
	return a.stateHash
}

// GetCadenceState returns the last state notified by the node
func (a *State) GetCadenceState() state.State {
	a.RLock()
	defer a.RUnlock()
	return a.cadenceState
}
