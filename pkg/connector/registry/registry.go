// Package registry maps driver names to row source factories and format
// names to sink factories. Connector packages register themselves from
// init(); the CLI blank-imports them.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
)

// Registry manages connector registration and instantiation
type Registry struct {
	sources  map[string]core.SourceFactory
	catalogs map[string]core.CatalogFunc
	sinks    map[string]core.SinkFactory
	mu       sync.RWMutex
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources:  make(map[string]core.SourceFactory),
		catalogs: make(map[string]core.CatalogFunc),
		sinks:    make(map[string]core.SinkFactory),
	}
}

func (r *Registry) log() *zap.Logger {
	return logger.Get().With(zap.String("component", "connector_registry"))
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterSource registers a row source factory for a driver name
func (r *Registry) RegisterSource(driver string, factory core.SourceFactory) error {
	driver = normalize(driver)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[driver]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "source %s already registered", driver)
	}

	r.sources[driver] = factory
	r.log().Debug("source registered", zap.String("driver", driver))
	return nil
}

// RegisterCatalog registers the catalog lister for a driver name
func (r *Registry) RegisterCatalog(driver string, fn core.CatalogFunc) error {
	driver = normalize(driver)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.catalogs[driver]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "catalog %s already registered", driver)
	}
	r.catalogs[driver] = fn
	return nil
}

// RegisterSink registers a sink factory for a format name
func (r *Registry) RegisterSink(format string, factory core.SinkFactory) error {
	format = normalize(format)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[format]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "sink %s already registered", format)
	}

	r.sinks[format] = factory
	r.log().Debug("sink registered", zap.String("format", format))
	return nil
}

// OpenSource opens a row source for params.Driver. Errors from the factory
// are returned unchanged so their connection or query class survives.
func (r *Registry) OpenSource(ctx context.Context, params core.ConnectionParams, query core.Query) (core.RowSource, error) {
	r.mu.RLock()
	factory, exists := r.sources[normalize(params.Driver)]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown driver %q", params.Driver).
			WithDetail("available", strings.Join(r.ListSources(), ","))
	}
	return factory(ctx, params, query)
}

// Catalog lists tables and columns for params.Driver.
func (r *Registry) Catalog(ctx context.Context, params core.ConnectionParams) ([]core.CatalogEntry, error) {
	driver := normalize(params.Driver)
	r.mu.RLock()
	fn, ok := r.catalogs[driver]
	_, known := r.sources[driver]
	r.mu.RUnlock()

	if !ok {
		if known {
			return nil, errors.Newf(errors.ErrorTypeCapability, "driver %s does not support schema browsing", driver)
		}
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown driver %q", params.Driver)
	}
	return fn(ctx, params)
}

// CreateSink creates a sink for a format
func (r *Registry) CreateSink(format string, opts core.Options) (core.Sink, error) {
	r.mu.RLock()
	factory, exists := r.sinks[normalize(format)]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown format %q", format).
			WithDetail("available", strings.Join(r.ListSinks(), ","))
	}

	if opts == nil {
		opts = core.Options{}
	}
	sink, err := factory(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create sink").WithDetail("format", format)
	}
	return sink, nil
}

// ListSources returns the registered driver names, sorted
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sources)
}

// ListSinks returns the registered format names, sorted
func (r *Registry) ListSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sinks)
}

// HasSource checks if a driver is registered
func (r *Registry) HasSource(driver string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[normalize(driver)]
	return exists
}

// HasSink checks if a format is registered
func (r *Registry) HasSink(format string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sinks[normalize(format)]
	return exists
}

// Clear removes every registration
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = make(map[string]core.SourceFactory)
	r.catalogs = make(map[string]core.CatalogFunc)
	r.sinks = make(map[string]core.SinkFactory)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Global registry functions

// RegisterSource registers a source factory in the global registry
func RegisterSource(driver string, factory core.SourceFactory) error {
	return globalRegistry.RegisterSource(driver, factory)
}

// RegisterCatalog registers a catalog lister in the global registry
func RegisterCatalog(driver string, fn core.CatalogFunc) error {
	return globalRegistry.RegisterCatalog(driver, fn)
}

// RegisterSink registers a sink factory in the global registry
func RegisterSink(format string, factory core.SinkFactory) error {
	return globalRegistry.RegisterSink(format, factory)
}

// OpenSource opens a source from the global registry
func OpenSource(ctx context.Context, params core.ConnectionParams, query core.Query) (core.RowSource, error) {
	return globalRegistry.OpenSource(ctx, params, query)
}

// Catalog lists tables and columns using the global registry
func Catalog(ctx context.Context, params core.ConnectionParams) ([]core.CatalogEntry, error) {
	return globalRegistry.Catalog(ctx, params)
}

// CreateSink creates a sink from the global registry
func CreateSink(format string, opts core.Options) (core.Sink, error) {
	return globalRegistry.CreateSink(format, opts)
}

// ListSources lists drivers in the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListSinks lists formats in the global registry
func ListSinks() []string {
	return globalRegistry.ListSinks()
}

// GetRegistry returns the global registry
func GetRegistry() *Registry {
	return globalRegistry
}
