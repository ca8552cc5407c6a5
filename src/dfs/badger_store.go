package dfs

import (
	"context"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// BadgerStore persists content in a badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens, or creates, the database at path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	if logger != nil {
		opts.Logger = logger.WithField("prefix", "badger")
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

// Put implements the Store interface.
func (s *BadgerStore) Put(ctx context.Context, data []byte) (delta.Hash, error) {
	if err := ctx.Err(); err != nil {
		return delta.Hash{}, err
	}

	hash := delta.SumHash(data)

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(deltaKey(hash), data); err != nil {
		return delta.Hash{}, err
	}

	if err := tx.Commit(); err != nil {
		return delta.Hash{}, err
	}

	return hash, nil
}

// Get implements the Store interface.
func (s *BadgerStore) Get(ctx context.Context, hash delta.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	key := deltaKey(hash)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Delta", string(key))
	}

	return data, nil
}

// Has implements the Store interface.
func (s *BadgerStore) Has(ctx context.Context, hash delta.Hash) (bool, error) {
	_, err := s.Get(ctx, hash)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath returns the database directory.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func mapError(err error, name, key string) error {
	if err == badger.ErrKeyNotFound {
		return common.NewStoreErr(name, common.KeyNotFound, key)
	}
	return err
}
