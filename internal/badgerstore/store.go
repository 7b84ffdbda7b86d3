package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/nodestore"
)

const chunkPrefix = "chunk/"

// Store is a nodestore.Store that keeps chunks in BadgerDB.
type Store struct {
	db    *badger.DB
	owned bool
}

// New wraps an open database. Close leaves db open.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// OpenStore opens a database with cfg and returns a store that closes it on
// Close.
func OpenStore(cfg Config) (*Store, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, owned: true}, nil
}

func chunkKey(key nodestore.Key) []byte {
	return []byte(chunkPrefix + key.String())
}

// Put implements nodestore.Store.
func (s *Store) Put(ctx context.Context, key nodestore.Key, block *ndarray.Array) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(key), encodeBlock(block))
	})
	if err != nil {
		return fmt.Errorf("store chunk %s: %w", key, err)
	}
	return nil
}

// Get implements nodestore.Store.
func (s *Store) Get(ctx context.Context, key nodestore.Key) (*ndarray.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *ndarray.Array
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out, err = decodeBlock(val)
			return err
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, nodestore.NotFound(key)
	case err != nil:
		return nil, fmt.Errorf("load chunk %s: %w", key, err)
	}
	return out, nil
}

// Release implements nodestore.Store.
func (s *Store) Release(ctx context.Context, run string, node int) error {
	prefix := []byte(chunkPrefix + nodestore.NodePrefix(run, node))
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list chunks of %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("release chunks of %s: %w", prefix, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("release chunks of %s: %w", prefix, err)
	}
	return nil
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

var _ nodestore.Store = (*Store)(nil)
