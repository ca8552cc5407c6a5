package proxy

import (
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/node/state"
)

// ProxyHandler encapsulates callbacks to be called by the InmemProxy. This is
// the true contact surface between Cadence and the Application.
type ProxyHandler interface {
	// CommitHandler is called when a delta is accepted on the hash chain.
	CommitHandler(hash delta.Hash, d delta.Delta) (response CommitResponse, err error)

	// StateChangeHandler is called to notify that a Cadence node entered a
	// certain state
	StateChangeHandler(state.State) error
}
