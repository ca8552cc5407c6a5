package dfs

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/cadence/src/delta"
)

// ReadDelta loads and decodes the delta stored at hash, and checks that the
// content matches its address.
func ReadDelta(ctx context.Context, store Store, hash delta.Hash) (*delta.Delta, error) {
	data, err := store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	return DecodeDelta(hash, data)
}

// DecodeDelta decodes data and checks that it is the delta with the given
// hash.
func DecodeDelta(hash delta.Hash, data []byte) (*delta.Delta, error) {
	if delta.SumHash(data) != hash {
		return nil, fmt.Errorf("content does not match address %s", hash.Short())
	}

	d := new(delta.Delta)
	if err := d.Unmarshal(data); err != nil {
		return nil, err
	}

	return d, nil
}

// PutDelta encodes and stores d, and returns its hash.
func PutDelta(ctx context.Context, store Store, d *delta.Delta) (delta.Hash, error) {
	data, err := d.Marshal()
	if err != nil {
		return delta.Hash{}, err
	}
	return store.Put(ctx, data)
}
