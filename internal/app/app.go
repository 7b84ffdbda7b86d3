package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/specialistvlad/lineagegrid/internal/badgerstore"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/source"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *ops.Registry
	catalog  *source.Catalog
	memory   *source.MemoryStore

	datasetsMu     sync.Mutex
	datasets       *badger.DB
	httpServer     *http.Server
	meterProvider  *sdkmetric.MeterProvider
	metricsHandler http.Handler
}

// NewApp is the constructor for the main application. Result summaries go
// to outW and logs to logW. Every App has its own logger, operation
// catalog and source catalog.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	memory := source.NewMemoryStore()
	catalog := source.NewCatalog()
	catalog.Register("mem", memory.Opener())
	catalog.Register("synthetic", source.OpenSynthetic)

	a := &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: ops.Builtins(),
		catalog:  catalog,
		memory:   memory,
	}
	// The database itself is opened per Run; the scheme is bound once.
	if cfg.DatasetDir != "" {
		catalog.Register("badger", a.openDataset)
	}
	logger.Debug("Source catalog ready.", "schemes", catalog.Schemes())
	return a
}

func (a *App) openDataset(ctx context.Context, u *url.URL) (source.Source, error) {
	a.datasetsMu.Lock()
	db := a.datasets
	a.datasetsMu.Unlock()
	if db == nil {
		return nil, errors.New("dataset directory is not open")
	}
	return badgerstore.Opener(db)(ctx, u)
}

// Registry returns the operation catalog. This is primarily for embedding
// and tests.
func (a *App) Registry() *ops.Registry {
	return a.registry
}

// Catalog returns the source catalog, so embedders can register openers.
func (a *App) Catalog() *source.Catalog {
	return a.catalog
}

// Memory returns the store behind mem:// locations.
func (a *App) Memory() *source.MemoryStore {
	return a.memory
}
