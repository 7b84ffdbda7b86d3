// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. It is the default chunk store and keeps
// every intermediate chunk on the heap until it is released.
package inmemorystore
