package source

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/lineagegrid/internal/ndarray"
)

// Memory is a source backed by an in-memory array. It counts reads so
// callers can verify that composition never touches data.
type Memory struct {
	meta  Meta
	data  *ndarray.Array
	reads atomic.Int64
}

// NewMemory wraps data with meta. Known dimensions of meta.Shape must match
// the data's shape; unknown ones are allowed and stay unknown in Meta.
func NewMemory(meta Meta, data *ndarray.Array) (*Memory, error) {
	if len(meta.Dims) != len(meta.Shape) {
		return nil, fmt.Errorf("source '%s': %d dims but shape %v", meta.Name, len(meta.Dims), meta.Shape)
	}
	if data != nil {
		if len(data.Shape) != len(meta.Shape) {
			return nil, fmt.Errorf("source '%s': data shape %v does not match declared shape %v", meta.Name, data.Shape, meta.Shape)
		}
		for i, n := range meta.Shape {
			if n != ndarray.UnknownDim && n != data.Shape[i] {
				return nil, fmt.Errorf("source '%s': data shape %v does not match declared shape %v", meta.Name, data.Shape, meta.Shape)
			}
		}
		if data.DType != meta.DType {
			return nil, fmt.Errorf("source '%s': data dtype %s does not match declared %s", meta.Name, data.DType, meta.DType)
		}
	}
	for name, c := range meta.Coords {
		if c.Dim == "" {
			continue
		}
		axis := slices.Index(meta.Dims, c.Dim)
		if axis < 0 {
			return nil, fmt.Errorf("source '%s': coordinate '%s' labels unknown dim '%s'", meta.Name, name, c.Dim)
		}
		if n := meta.Shape[axis]; n != ndarray.UnknownDim && n != len(c.Values) {
			return nil, fmt.Errorf("source '%s': coordinate '%s' has %d values for dim of size %d", meta.Name, name, len(c.Values), n)
		}
	}
	return &Memory{meta: meta.Clone(), data: data}, nil
}

// Meta implements Source.
func (m *Memory) Meta() Meta {
	return m.meta.Clone()
}

// ReadRegion implements Source.
func (m *Memory) ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.data == nil {
		return nil, fmt.Errorf("source '%s' has no data attached", m.meta.Name)
	}
	m.reads.Add(1)
	return m.data.Block(r)
}

// Reads returns how many regions have been read so far.
func (m *Memory) Reads() int64 {
	return m.reads.Load()
}

// MemoryStore serves Memory sources under mem://<name>.
type MemoryStore struct {
	sources sync.Map
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put makes src available as mem://name.
func (s *MemoryStore) Put(name string, src *Memory) {
	s.sources.Store(name, src)
}

// Opener returns the mem:// opener backed by this store.
func (s *MemoryStore) Opener() Opener {
	return func(_ context.Context, u *url.URL) (Source, error) {
		name := strings.TrimSuffix(u.Host+u.Path, "/")
		src, ok := s.sources.Load(name)
		if !ok {
			return nil, fmt.Errorf("no in-memory dataset named '%s'", name)
		}
		return src.(*Memory), nil
	}
}
