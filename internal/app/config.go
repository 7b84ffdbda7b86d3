package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl files
	// DatasetDir is a BadgerDB directory served under badger://. Optional.
	DatasetDir string

	LogFormat       string
	LogLevel        string
	OutputFormat    string // json or yaml
	HealthcheckPort int

	// Engine overrides. Zero values keep the pipeline's engine block.
	Workers          int
	TargetChunkBytes int64
	SpillDir         string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if cfg.OutputFormat != "json" && cfg.OutputFormat != "yaml" {
		return nil, fmt.Errorf("invalid output format '%s': must be 'json' or 'yaml'", cfg.OutputFormat)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.TargetChunkBytes < 0 {
		return nil, fmt.Errorf("target chunk bytes must not be negative, got %d", cfg.TargetChunkBytes)
	}
	return &cfg, nil
}
