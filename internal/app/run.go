package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/lineagegrid/internal/badgerstore"
	"github.com/specialistvlad/lineagegrid/internal/builder"
	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/model"
	"github.com/specialistvlad/lineagegrid/internal/session"
)

// ErrUnusableResults is returned by Run when at least one output failed the
// result gate. The summary is still written.
var ErrUnusableResults = errors.New("one or more outputs failed validation")

// Run loads the pipeline, materializes its outputs and writes the summary.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Application run started.", "pipeline", a.config.PipelinePath)

	if err := a.startTelemetry(); err != nil {
		return err
	}
	a.healthCheckServer()
	defer a.Close()

	if err := a.openDatasets(ctx); err != nil {
		return err
	}

	pipeline, err := model.Load(ctx, a.config.PipelinePath)
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}

	opts, err := pipeline.Options(config.Default())
	if err != nil {
		return err
	}
	opts = a.overrideOptions(opts)

	build, err := builder.BuildGraph(ctx, pipeline, a.catalog, a.registry, opts)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	sess, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Error("Failed to close session.", "error", cerr)
		}
	}()

	targets := make([]session.Target, len(build.Outputs))
	for i, o := range build.Outputs {
		targets[i] = session.Target{Name: o.Name, Node: o.Node}
	}
	report, err := sess.Run(ctx, build.Graph, targets)
	if err != nil {
		return err
	}

	sum := newSummary(report)
	sum.Trajectories = runTrajectories(ctx, build, report)
	sum.Usable = sum.usable()
	if err := writeSummary(a.outW, a.config.OutputFormat, sum); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if !sum.Usable {
		return ErrUnusableResults
	}
	return nil
}

// openDatasets opens the badger dataset directory when one is configured
// and not already open.
func (a *App) openDatasets(ctx context.Context) error {
	if a.config.DatasetDir == "" {
		return nil
	}
	a.datasetsMu.Lock()
	defer a.datasetsMu.Unlock()
	if a.datasets != nil {
		return nil
	}
	cfg := badgerstore.DefaultConfig(a.config.DatasetDir)
	cfg.Logger = ctxlog.FromContext(ctx)
	db, err := badgerstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open dataset directory: %w", err)
	}
	a.datasets = db
	ctxlog.FromContext(ctx).Debug("Dataset directory opened.", "path", a.config.DatasetDir)
	return nil
}

// overrideOptions applies the non-zero command line overrides on top of
// the pipeline's engine block.
func (a *App) overrideOptions(opts config.Options) config.Options {
	if a.config.Workers > 0 {
		opts.Workers = a.config.Workers
	}
	if a.config.TargetChunkBytes > 0 {
		opts.TargetChunkBytes = a.config.TargetChunkBytes
	}
	if a.config.SpillDir != "" {
		opts.SpillDir = a.config.SpillDir
	}
	return opts
}

// Close releases everything Run acquired. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	if err := a.closeHealthCheckServer(); err != nil {
		errs = append(errs, err)
	}
	a.httpServer = nil
	if err := a.stopTelemetry(); err != nil {
		errs = append(errs, err)
	}
	a.meterProvider = nil
	a.datasetsMu.Lock()
	if a.datasets != nil {
		if err := a.datasets.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dataset directory: %w", err))
		}
		a.datasets = nil
	}
	a.datasetsMu.Unlock()
	return errors.Join(errs...)
}
