package proxy

import "github.com/mosaicnetworks/cadence/src/delta"

// CommitResponse is returned by the application after applying a delta.
type CommitResponse struct {
	StateHash []byte
}

// CommitCallback ...
type CommitCallback func(hash delta.Hash, d delta.Delta) (CommitResponse, error)

//DummyCommitCallback is used for testing
func DummyCommitCallback(hash delta.Hash, d delta.Delta) (CommitResponse, error) {
	return CommitResponse{StateHash: d.StateHash.Bytes()}, nil
}
