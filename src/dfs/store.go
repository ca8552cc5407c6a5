// Package dfs is the content-addressed storage that confirmed deltas are
// published to. Content is addressed by its SHA256 hash, which is also the
// hash of the Delta it encodes.
package dfs

import (
	"context"

	"github.com/mosaicnetworks/cadence/src/delta"
)

// Store is a content-addressed blob store.
type Store interface {
	// Put stores data and returns its content address. Putting the same
	// content twice is not an error.
	Put(ctx context.Context, data []byte) (delta.Hash, error)
	// Get returns the content stored at hash, or a KeyNotFound StoreErr.
	Get(ctx context.Context, hash delta.Hash) ([]byte, error)
	// Has reports whether hash is stored.
	Has(ctx context.Context, hash delta.Hash) (bool, error)
	Close() error
}

const deltaPrefix = "delta"

func deltaKey(hash delta.Hash) []byte {
	return []byte(deltaPrefix + "_" + hash.Hex())
}
