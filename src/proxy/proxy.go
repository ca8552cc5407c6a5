package proxy

import (
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/node/state"
)

// Transaction is an application transaction with the priority used to order
// it in the mempool.
type Transaction struct {
	Data     []byte
	Priority int64
}

// AppProxy ...
type AppProxy interface {
	SubmitCh() chan Transaction
	CommitDelta(hash delta.Hash, d delta.Delta) (CommitResponse, error)
	OnStateChanged(state.State) error
}
