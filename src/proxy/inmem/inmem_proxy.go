package inmem

import (
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/node/state"
	"github.com/mosaicnetworks/cadence/src/proxy"
	"github.com/sirupsen/logrus"
)

//InmemProxy implements the AppProxy interface natively
type InmemProxy struct {
	handler  proxy.ProxyHandler
	submitCh chan proxy.Transaction
	logger   *logrus.Entry
}

// NewInmemProxy instantiates an InmemProxy from a set of handlers.
// If no logger, a new one is created
func NewInmemProxy(handler proxy.ProxyHandler,
	logger *logrus.Entry) *InmemProxy {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &InmemProxy{
		handler:  handler,
		submitCh: make(chan proxy.Transaction),
		logger:   logger.WithField("prefix", "inmem-proxy"),
	}
}

/*******************************************************************************
* SubmitTx                                                                     *
*******************************************************************************/

//SubmitTx is called by the App to submit a transaction with the default
//priority
func (p *InmemProxy) SubmitTx(tx []byte) {
	p.SubmitTxWithPriority(tx, 0)
}

//SubmitTxWithPriority is called by the App to submit a transaction. Higher
//priorities are included in deltas first.
func (p *InmemProxy) SubmitTxWithPriority(tx []byte, priority int64) {
	//have to make a copy, the caller may reuse the slice
	t := make([]byte, len(tx))

	copy(t, tx)

	p.submitCh <- proxy.Transaction{Data: t, Priority: priority}
}

/*******************************************************************************
* Implement AppProxy Interface                                                 *
*******************************************************************************/

//SubmitCh returns the channel of raw transactions
func (p *InmemProxy) SubmitCh() chan proxy.Transaction {
	return p.submitCh
}

//CommitDelta calls the commitHandler
func (p *InmemProxy) CommitDelta(hash delta.Hash, d delta.Delta) (proxy.CommitResponse, error) {
	commitResponse, err := p.handler.CommitHandler(hash, d)

	p.logger.WithFields(logrus.Fields{
		"hash": hash.Short(),
		"prev": d.PreviousDeltaHash.Short(),
		"txs":  len(d.Transactions),
		"err":  err,
	}).Debug("InmemProxy.CommitDelta")

	return commitResponse, err
}

//OnStateChanged calls the StateChangeHandler
func (p *InmemProxy) OnStateChanged(state state.State) error {
	return p.handler.StateChangeHandler(state)
}
