/*
Package builder turns a parsed pipeline into a lazy graph. It is the bridge
between the static model (package model) and the engine (package graph).

The build is a multi-phase process:

 1. Node registration: every source and step block becomes a vertex of a
    string-keyed dag.Graph, addressed as source.<name> or step.<op>.<name>.

 2. Dependency linking: input references (implicit, data-carrying) and
    depends_on references (explicit, ordering only) become edges. A
    reference to an undeclared block is an error.

 3. Validation: cycle detection on the dag. A cyclic pipeline is reported as
    a *graph.CycleError naming the block addresses on the cycle.

 4. Composition: blocks are visited in topological order. Sources are
    opened through a source.Catalog (metadata only) and loaded as leaves;
    steps are composed, so shape, dtype and coordinate rules are enforced
    before anything is read. depends_on edges become graph ordering edges.

No array data is read while building.
*/
package builder
