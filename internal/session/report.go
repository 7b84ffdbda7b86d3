package session

import (
	"time"

	"github.com/specialistvlad/lineagegrid/internal/chunkplan"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/materialize"
	"github.com/specialistvlad/lineagegrid/internal/validate"
)

// Target is a named node to materialize.
type Target struct {
	Name string
	Node graph.ID
}

// Outcome is the gated result of one target.
type Outcome struct {
	Name       string
	Result     *materialize.Result
	Violations []validate.Violation
	// Usable is false when a violation reached the error severity.
	Usable bool
}

// Report describes one Run.
type Report struct {
	Static   []validate.Violation
	Scheme   chunkplan.Scheme
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Usable reports whether every outcome passed the result gate. A report
// without outcomes is not usable.
func (r *Report) Usable() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.Usable {
			return false
		}
	}
	return true
}
