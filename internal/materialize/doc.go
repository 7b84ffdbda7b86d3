// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package materialize executes a lazy graph chunk by chunk.
//
// # Execution Model
//
// Materialize orders the subgraph reachable from the requested roots
// topologically and gives every node a chunk grid derived from the caller's
// scheme. One task is created per (node, chunk index). A node's tasks are
// released to the worker pool only when every node it depends on has
// finished all of its chunks; tasks of the same node run in any order.
//
//	  load ─┬─ chunk(0,0) ┐
//	        ├─ chunk(0,1) ├──▶ scale ─┬─ chunk(0,0) ┐
//	        └─ chunk(1,0) ┘           └─ ...        ├──▶ reduce_sum
//	                                                ┘
//
// Kernels read only the parent regions their chunk needs. Reductions run in
// two phases: one partial per overlapping parent chunk, then a merge in
// row-major chunk order, so results do not depend on task scheduling.
//
// # Failure
//
// The first failing chunk cancels the run. Queued tasks are skipped,
// in-flight tasks finish, and the caller receives a *MaterializationError
// naming the node and chunk. No partial results are returned.
package materialize
