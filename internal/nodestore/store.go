// Package nodestore defines the interface for storing the materialized
// chunks of graph nodes while a materialization runs.
//
// # Why Node Store Exists
//
// The store separates **mutable execution state** (the chunk blocks each
// node has produced so far) from the **immutable graph structure** held by
// the graph package. The materializer writes a chunk once its kernel
// finishes, children read the parent chunks that overlap their own region,
// and every chunk of a node is released as soon as the last dependent node
// has finished.
//
// # Lifecycle and Usage
//
// A store is:
//  1. **Created** once per materializer (in memory, or spilled to BadgerDB)
//  2. **Written** by chunk tasks, one Put per (run, node, chunk index)
//  3. **Read** by dependent chunk tasks and by final root assembly
//  4. **Released** per node when no dependent needs its chunks any more
//  5. **Closed** by its owner
//
// Every key carries the id of the materialization run that wrote it, so
// concurrent materializations sharing one store never observe each
// other's chunks.
package nodestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/lineagegrid/internal/ndarray"
)

// ErrChunkNotFound is returned by Get for chunks that were never written or
// were already released.
var ErrChunkNotFound = errors.New("chunk not found")

// Key addresses one chunk of one node within one materialization run.
type Key struct {
	Run   string
	Node  int
	Chunk []int
}

// String renders the key as "<run>/n<node>/<i>.<j>...". Scalar chunks use
// "_" as their index.
func (k Key) String() string {
	return k.Prefix() + ChunkIndex(k.Chunk)
}

// Prefix is the key prefix shared by every chunk of the key's node.
func (k Key) Prefix() string {
	return NodePrefix(k.Run, k.Node)
}

// NodePrefix is the key prefix shared by every chunk of node in run.
func NodePrefix(run string, node int) string {
	return fmt.Sprintf("%s/n%d/", run, node)
}

// ChunkIndex renders a chunk index as "i.j...", or "_" for scalar chunks.
func ChunkIndex(idx []int) string {
	if len(idx) == 0 {
		return "_"
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// Store manages the materialized chunks of nodes during execution.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use: chunk tasks of many
// nodes write and read at the same time.
type Store interface {
	// Put records the block computed for key. Blocks are never modified
	// after Put; callers must not mutate a block once stored.
	Put(ctx context.Context, key Key, block *ndarray.Array) error

	// Get returns the block stored under key, or an error wrapping
	// ErrChunkNotFound.
	Get(ctx context.Context, key Key) (*ndarray.Array, error)

	// Release drops every chunk of node in run. Releasing a node with no
	// chunks is not an error.
	Release(ctx context.Context, run string, node int) error

	// Close releases the resources held by the store.
	Close() error
}

// NotFound wraps ErrChunkNotFound with the key that was missing.
func NotFound(key Key) error {
	return fmt.Errorf("%w: %s", ErrChunkNotFound, key)
}
