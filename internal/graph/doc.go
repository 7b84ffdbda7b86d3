// Package graph holds the lazy computation graph: an arena of immutable
// nodes, each describing one deferred operation over its parents.
//
// # Why an Arena
//
// Nodes reference their parents by ID (an index into the graph's node
// table), never by pointer. A node may feed any number of children, and the
// graph stays a flat table that is cheap to walk, order and release:
//
//	  arena: [ n0 load ][ n1 scale ][ n2 load ][ n3 broadcast_add ]
//	                ^          |          ^           |   |
//	                └──────────┘          └───────────┘   |
//	                     ^                                 |
//	                     └─────────────────────────────────┘
//
// # Two Phases
//
// Building a graph is pure: Load and Compose only derive shape, dtype,
// coordinates and provenance from the parents' declared metadata and the
// operation. No data is read until a materializer is asked to execute the
// graph, and composition is refused while that happens (ErrGraphBusy).
//
// # Composition Rules
//
// Each operation kind carries its own shape inference rule:
//   - **elementwise-map:** inputs share dims by name and order; sizes must
//     be equal or 1.
//   - **broadcast-combine:** output dims are the union of the inputs' dims
//     (first input's order, then new dims); sizes equal or 1; coordinates
//     shared between inputs must be identical.
//   - **reduction:** reduced dims and their coordinates are dropped.
//   - **coordinate-transform:** the only kind allowed to slice, rename or
//     drop coordinates.
//
// Every composed node records a provenance delta and the ledger merged from
// its parents, so lineage is a property of structure, not of execution.
//
// # Cycles
//
// Composition can only reference existing nodes, so parent edges never form
// a cycle. Explicit ordering edges added with AddDependency (the analogue of
// a pipeline's depends_on) are not checked when added; DetectCycles and
// TopoOrder report any back-edge as a *CycleError.
package graph
