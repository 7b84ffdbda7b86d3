// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package materialize

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("lineagegrid.materialize")
	meter  = otel.Meter("lineagegrid.materialize")
)

// instruments are created lazily on first use so that a meter provider
// installed by the application after package init is honoured.
type instruments struct {
	once        sync.Once
	chunkTime   metric.Float64Histogram
	runTime     metric.Float64Histogram
	chunks      metric.Int64Counter
	failures    metric.Int64Counter
	chunkBytes  metric.Int64Counter
	activeTasks metric.Int64UpDownCounter
}

func (in *instruments) init(ctx context.Context, logger *slog.Logger) {
	in.once.Do(func() {
		var failed []string
		var err error

		in.chunkTime, err = meter.Float64Histogram("lineagegrid_chunk_duration_seconds",
			metric.WithDescription("Time spent evaluating one chunk"),
			metric.WithUnit("s"),
		)
		if err != nil {
			failed = append(failed, "chunk_duration: "+err.Error())
		}
		in.runTime, err = meter.Float64Histogram("lineagegrid_materialization_duration_seconds",
			metric.WithDescription("Total time of one materialization"),
			metric.WithUnit("s"),
		)
		if err != nil {
			failed = append(failed, "materialization_duration: "+err.Error())
		}
		in.chunks, err = meter.Int64Counter("lineagegrid_chunks_total",
			metric.WithDescription("Number of chunks evaluated"),
		)
		if err != nil {
			failed = append(failed, "chunks: "+err.Error())
		}
		in.failures, err = meter.Int64Counter("lineagegrid_chunk_failures_total",
			metric.WithDescription("Number of chunk evaluations that failed"),
		)
		if err != nil {
			failed = append(failed, "failures: "+err.Error())
		}
		in.chunkBytes, err = meter.Int64Counter("lineagegrid_chunk_bytes_total",
			metric.WithDescription("Bytes of chunk data produced"),
			metric.WithUnit("By"),
		)
		if err != nil {
			failed = append(failed, "chunk_bytes: "+err.Error())
		}
		in.activeTasks, err = meter.Int64UpDownCounter("lineagegrid_active_chunk_tasks",
			metric.WithDescription("Number of chunk tasks currently running"),
		)
		if err != nil {
			failed = append(failed, "active_tasks: "+err.Error())
		}

		if len(failed) > 0 {
			logger.ErrorContext(ctx, "Failed to initialize some materializer metrics.", "failed_count", len(failed), "errors", failed)
		}
	})
}
