package inmemorystore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/nodestore"
)

// Store is an in-memory nodestore.Store backed by sync.Map.
//
// sync.Map fits the workload: every chunk key is written exactly once and
// then read by a handful of dependent tasks, with many goroutines touching
// disjoint keys at the same time.
type Store struct {
	chunks sync.Map // Key: nodestore.Key string, Value: *ndarray.Array
	bytes  atomic.Int64
}

// New creates a new, empty in-memory chunk store.
func New() *Store {
	return &Store{}
}

// Put stores block under key, replacing any previous block.
func (s *Store) Put(ctx context.Context, key nodestore.Key, block *ndarray.Array) error {
	if prev, loaded := s.chunks.Swap(key.String(), block); loaded {
		s.bytes.Add(-prev.(*ndarray.Array).Bytes())
	}
	s.bytes.Add(block.Bytes())
	return nil
}

// Get returns the block stored under key.
func (s *Store) Get(ctx context.Context, key nodestore.Key) (*ndarray.Array, error) {
	v, ok := s.chunks.Load(key.String())
	if !ok {
		return nil, nodestore.NotFound(key)
	}
	return v.(*ndarray.Array), nil
}

// Release drops every chunk of node in run.
func (s *Store) Release(ctx context.Context, run string, node int) error {
	prefix := nodestore.NodePrefix(run, node)
	s.chunks.Range(func(k, v any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			if _, loaded := s.chunks.LoadAndDelete(k); loaded {
				s.bytes.Add(-v.(*ndarray.Array).Bytes())
			}
		}
		return true
	})
	return nil
}

// Bytes reports the total size of the blocks currently held.
func (s *Store) Bytes() int64 {
	return s.bytes.Load()
}

// Len reports the number of chunks currently held.
func (s *Store) Len() int {
	n := 0
	s.chunks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close drops every chunk.
func (s *Store) Close() error {
	s.chunks.Clear()
	s.bytes.Store(0)
	return nil
}

var _ nodestore.Store = (*Store)(nil)
