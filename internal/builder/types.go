package builder

import (
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/model"
	"github.com/specialistvlad/lineagegrid/internal/trajectory"
)

// Output is a named root of a built pipeline.
type Output struct {
	Name string
	Node graph.ID
}

// Trajectory is a trajectory block bound to the nodes of its velocity
// components.
type Trajectory struct {
	Name  string
	U, V  graph.ID
	Start trajectory.Point
	Steps int
}

// Build is the artifact of the builder: the lazy graph and the mapping from
// block addresses to its nodes.
type Build struct {
	Graph *graph.Graph
	// Nodes maps block addresses (source.<name>, step.<op>.<name>) to nodes.
	Nodes   map[string]graph.ID
	Outputs []Output
	// Trajectories run on the results of their U and V nodes, which are
	// always among Outputs.
	Trajectories []Trajectory
	// Order is the topological order the blocks were composed in.
	Order []string

	pipeline *model.Pipeline
}

// Roots returns the output nodes in declaration order.
func (b *Build) Roots() []graph.ID {
	out := make([]graph.ID, len(b.Outputs))
	for i, o := range b.Outputs {
		out[i] = o.Node
	}
	return out
}

// Pipeline returns the pipeline the build was made from.
func (b *Build) Pipeline() *model.Pipeline {
	return b.pipeline
}
