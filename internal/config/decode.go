package config

import (
	"fmt"
	"maps"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// engineBlock mirrors the attributes accepted inside `engine { ... }`.
// Pointers distinguish unset attributes from zero values.
type engineBlock struct {
	TargetChunkBytes             *int64            `hcl:"target_chunk_bytes,optional"`
	Workers                      *int              `hcl:"workers,optional"`
	DisabledCoordinateTransforms []string          `hcl:"disabled_coordinate_transforms,optional"`
	AllowMultiDimReduction       *bool             `hcl:"allow_multi_dim_reduction,optional"`
	Severity                     map[string]string `hcl:"severity,optional"`
	RequiredAttributes           []string          `hcl:"required_attributes,optional"`
	SpillDir                     *string           `hcl:"spill_dir,optional"`
}

// Decode overlays the attributes of an `engine` block body onto base and
// validates the result. A nil body returns base unchanged.
func Decode(body hcl.Body, base Options) (Options, error) {
	if body == nil {
		return base, base.Validate()
	}

	var block engineBlock
	if diags := gohcl.DecodeBody(body, nil, &block); diags.HasErrors() {
		return Options{}, fmt.Errorf("failed to decode engine block: %w", diags)
	}

	out := base
	if block.TargetChunkBytes != nil {
		out.TargetChunkBytes = *block.TargetChunkBytes
	}
	if block.Workers != nil {
		out.Workers = *block.Workers
	}
	if block.DisabledCoordinateTransforms != nil {
		out.DisabledCoordinateTransforms = block.DisabledCoordinateTransforms
	}
	if block.AllowMultiDimReduction != nil {
		out.AllowMultiDimReduction = *block.AllowMultiDimReduction
	}
	if block.Severity != nil {
		out.Severity = maps.Clone(base.Severity)
		if out.Severity == nil {
			out.Severity = make(map[string]string, len(block.Severity))
		}
		maps.Copy(out.Severity, block.Severity)
	}
	if block.RequiredAttributes != nil {
		out.RequiredAttributes = block.RequiredAttributes
	}
	if block.SpillDir != nil {
		out.SpillDir = *block.SpillDir
	}

	if err := out.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid engine options: %w", err)
	}
	return out, nil
}
