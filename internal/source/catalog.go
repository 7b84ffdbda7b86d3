package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
)

// Opener opens the source addressed by a parsed location.
type Opener func(ctx context.Context, location *url.URL) (Source, error)

// Catalog dispatches locations to openers by URL scheme.
type Catalog struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

// NewCatalog returns a catalog with no openers registered.
func NewCatalog() *Catalog {
	return &Catalog{openers: make(map[string]Opener)}
}

// Register binds scheme to opener. It panics when the scheme is taken.
func (c *Catalog) Register(scheme string, opener Opener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.openers[scheme]; exists {
		panic(fmt.Sprintf("source opener for scheme '%s' already registered", scheme))
	}
	slog.Debug("Registering source opener.", "scheme", scheme)
	c.openers[scheme] = opener
}

// Schemes returns the registered schemes in sorted order.
func (c *Catalog) Schemes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.openers))
	for s := range c.openers {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Open resolves location, opens the source and normalizes its variable name.
// When variable is not empty it overrides the name reported by the source.
func (c *Catalog) Open(ctx context.Context, location, variable string) (Source, error) {
	logger := ctxlog.FromContext(ctx)

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid source location %q: %w", location, err)
	}
	c.mu.RLock()
	opener, ok := c.openers[u.Scheme]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no source opener registered for scheme '%s' (location %q)", u.Scheme, location)
	}

	src, err := opener(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %q: %w", location, err)
	}

	meta := src.Meta()
	if variable != "" {
		meta.Name = variable
	}
	meta.Name = Normalize(meta.Name)
	meta.Location = location
	logger.Debug("Source opened.", "location", location, "name", meta.Name, "dims", meta.Dims, "shape", meta.Shape, "dtype", meta.DType.String())
	return &renamed{Source: src, meta: meta}, nil
}
