package dummy

import (
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/node/state"
	"github.com/mosaicnetworks/cadence/src/proxy/inmem"
	"github.com/sirupsen/logrus"
)

// InmemDummyClient is an in-memory implementation of the dummy app. It actually
// implements the AppProxy interface, and can be passed in the Cadence
// constructor directly
type InmemDummyClient struct {
	*inmem.InmemProxy
	state  *State
	logger *logrus.Entry
}

//NewInmemDummyClient instantiates an InmemDummyClient
func NewInmemDummyClient(logger *logrus.Entry) *InmemDummyClient {
	state := NewState(logger.WithField("prefix", "dummy"))

	proxy := inmem.NewInmemProxy(state, logger)

	client := &InmemDummyClient{
		InmemProxy: proxy,
		state:      state,
		logger:     logger,
	}

	return client
}

//SubmitTx sends a transaction to the Cadence node via the InmemProxy
func (c *InmemDummyClient) SubmitTx(tx []byte) {
	c.InmemProxy.SubmitTx(tx)
}

//GetCommittedTransactions returns the state's list of transactions
func (c *InmemDummyClient) GetCommittedTransactions() [][]byte {
	return c.state.GetCommittedTransactions()
}

//GetCommittedDeltas returns the hashes of the deltas applied to the state
func (c *InmemDummyClient) GetCommittedDeltas() []delta.Hash {
	return c.state.GetCommittedDeltas()
}

//GetStateHash returns the state hash of the application
func (c *InmemDummyClient) GetStateHash() []byte {
	return c.state.GetStateHash()
}

//GetCadenceState returns the last node state notified to the application
func (c *InmemDummyClient) GetCadenceState() state.State {
	return c.state.GetCadenceState()
}
