package testutil

// Summary mirrors the JSON summary the application writes.
type Summary struct {
	Usable    bool              `json:"usable"`
	ChunkDims []string          `json:"chunk_dims"`
	Chunks    [][]int           `json:"chunks"`
	Static    []ViolationRecord `json:"static_violations"`
	Outputs   []OutputSummary   `json:"outputs"`
}

// OutputSummary is one output of a Summary.
type OutputSummary struct {
	Name       string            `json:"name"`
	Usable     bool              `json:"usable"`
	Dims       []string          `json:"dims"`
	Shape      []int             `json:"shape"`
	DType      string            `json:"dtype"`
	Coords     []string          `json:"coords"`
	Attrs      map[string]string `json:"attrs"`
	Min        float64           `json:"min"`
	Max        float64           `json:"max"`
	Mean       float64           `json:"mean"`
	Values     []float64         `json:"values"`
	Violations []ViolationRecord `json:"violations"`
}

// ViolationRecord is a violation as written in a summary.
type ViolationRecord struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Node     int    `json:"node"`
	Message  string `json:"message"`
}

// Codes returns the violation codes of o in order.
func (o OutputSummary) Codes() []string {
	out := make([]string, len(o.Violations))
	for i, v := range o.Violations {
		out[i] = v.Code
	}
	return out
}
