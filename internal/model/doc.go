// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of lineagegrid
// pipeline files. Its purpose is to turn the raw HCL of one or more .hcl
// files into a strongly-typed, in-memory Pipeline without evaluating any
// array data.
//
// # Core Concepts
//
//   - Pipeline: the root container. It aggregates every block parsed from
//     the files of one workspace directory.
//
//   - Source: a named input array, located by URL (mem://, synthetic://,
//     badger://) and an optional variable name.
//
//   - Step: one invocation of a catalog operation. Its inputs are
//     references to sources or other steps and its params are literal
//     values. A step becomes exactly one node of the lazy graph.
//
//   - Output: a named root of the graph. Only outputs are materialized.
//
//   - Trajectory: a particle advected through the velocity field of two
//     referenced blocks, u and v, after they are materialized.
//
//   - FSInfo: links every block back to the file it came from, for error
//     messages.
//
// The model keeps references as hcl.Expression values. Turning them into
// graph edges is the job of the builder, which needs the whole workspace to
// resolve references that span files.
package model
