package dfs

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
)

// InmemStore keeps content in memory. It is not bounded and is meant for
// tests and short-lived nodes.
type InmemStore struct {
	sync.RWMutex
	blobs map[delta.Hash][]byte
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		blobs: make(map[delta.Hash][]byte),
	}
}

// Put implements the Store interface.
func (s *InmemStore) Put(ctx context.Context, data []byte) (delta.Hash, error) {
	if err := ctx.Err(); err != nil {
		return delta.Hash{}, err
	}

	hash := delta.SumHash(data)

	s.Lock()
	defer s.Unlock()
	if _, ok := s.blobs[hash]; !ok {
		s.blobs[hash] = append([]byte{}, data...)
	}

	return hash, nil
}

// Get implements the Store interface.
func (s *InmemStore) Get(ctx context.Context, hash delta.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.RLock()
	defer s.RUnlock()
	data, ok := s.blobs[hash]
	if !ok {
		return nil, common.NewStoreErr("Delta", common.KeyNotFound, hash.Hex())
	}

	return append([]byte{}, data...), nil
}

// Has implements the Store interface.
func (s *InmemStore) Has(ctx context.Context, hash delta.Hash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.RLock()
	defer s.RUnlock()
	_, ok := s.blobs[hash]
	return ok, nil
}

// Len returns the number of blobs stored.
func (s *InmemStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.blobs)
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
