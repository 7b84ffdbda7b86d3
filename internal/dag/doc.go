// Package dag is a small, concurrency-safe directed graph keyed by string
// IDs. The pipeline builder uses it to order blocks by their references and
// to reject cyclic pipelines before anything is composed.
package dag
