package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/specialistvlad/lineagegrid/internal/chunkplan"
)

// Severity names accepted by the Severity map.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Options holds every engine setting.
type Options struct {
	// TargetChunkBytes is the chunk byte budget handed to the chunk planner.
	// Default: 100,000,000.
	TargetChunkBytes int64
	// Workers bounds the number of chunk evaluations running at once.
	// Default: runtime.NumCPU().
	Workers int
	// DisabledCoordinateTransforms lists coordinate-transform operations
	// (e.g. "drop_coord") that composition must refuse. Default: none.
	DisabledCoordinateTransforms []string
	// AllowMultiDimReduction permits a single reduction over more than one
	// dimension. Default: true.
	AllowMultiDimReduction bool
	// Severity overrides the severity of violation codes, e.g.
	// {"coordinate_unexpected": "error"}. Default: built-in policy.
	Severity map[string]string
	// RequiredAttributes lists result attributes that must be present and
	// non-empty. The history attribute is always checked. Default: none.
	RequiredAttributes []string
	// SpillDir, when set, keeps intermediate chunks in a BadgerDB at this
	// path instead of in memory. Default: "" (in memory).
	SpillDir string
}

// Default returns the documented defaults.
func Default() Options {
	return Options{
		TargetChunkBytes:       chunkplan.DefaultTargetBytes,
		Workers:                runtime.NumCPU(),
		AllowMultiDimReduction: true,
	}
}

// Validate reports settings that can never work.
func (o Options) Validate() error {
	var errs []error
	if o.TargetChunkBytes <= 0 {
		errs = append(errs, fmt.Errorf("target_chunk_bytes must be positive, got %d", o.TargetChunkBytes))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", o.Workers))
	}
	for code, sev := range o.Severity {
		if sev != SeverityWarning && sev != SeverityError {
			errs = append(errs, fmt.Errorf("severity for '%s' must be '%s' or '%s', got '%s'", code, SeverityWarning, SeverityError, sev))
		}
	}
	return errors.Join(errs...)
}

// TransformDisabled reports whether the named coordinate transform is off.
func (o Options) TransformDisabled(name string) bool {
	for _, n := range o.DisabledCoordinateTransforms {
		if n == name {
			return true
		}
	}
	return false
}
