package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/internal/logger"
	"github.com/liamcoop/configbuilder/rules"
)

// LoadedCatalog is a validated catalog ready to back sessions
type LoadedCatalog struct {
	Snapshot *catalog.Snapshot
	Store    *catalog.Store
	Resolver *rules.Resolver
	LoadedAt time.Time
}

// Build validates a snapshot into a LoadedCatalog
func Build(snap *catalog.Snapshot) (*LoadedCatalog, error) {
	st, resolver, err := snap.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &LoadedCatalog{
		Snapshot: snap,
		Store:    st,
		Resolver: resolver,
		LoadedAt: time.Now(),
	}, nil
}

// CatalogCache caches the loaded catalog.
// This allows swapping the in-memory cache for a shared one later.
type CatalogCache interface {
	// Get returns the cached catalog, nil on miss or expiry
	Get() *LoadedCatalog

	// Set stores the catalog
	Set(c *LoadedCatalog)

	// Invalidate clears the cache, forcing a reload on next access
	Invalidate()

	// IsValid returns true if the cache holds an unexpired catalog
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for the cached catalog.
	// Set to 0 for no expiration (manual invalidation only)
	TTL time.Duration
}

// DefaultCacheConfig returns manual-invalidation caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}

// InMemoryCatalogCache is an in-memory CatalogCache, safe for concurrent use
type InMemoryCatalogCache struct {
	catalog  *LoadedCatalog
	cachedAt time.Time
	config   CacheConfig
	mu       sync.RWMutex
	now      func() time.Time
}

// NewInMemoryCatalogCache creates an empty cache
func NewInMemoryCatalogCache(config CacheConfig) *InMemoryCatalogCache {
	return &InMemoryCatalogCache{
		config: config,
		now:    time.Now,
	}
}

// Get returns the cached catalog or nil when empty or expired.
// The catalog itself is immutable and shared.
func (c *InMemoryCatalogCache) Get() *LoadedCatalog {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.validLocked() {
		return nil
	}
	return c.catalog
}

// Set stores the catalog
func (c *InMemoryCatalogCache) Set(loaded *LoadedCatalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = loaded
	c.cachedAt = c.now()
}

// Invalidate clears the cache
func (c *InMemoryCatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = nil
}

// IsValid returns true if the cache holds an unexpired catalog
func (c *InMemoryCatalogCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.validLocked()
}

func (c *InMemoryCatalogCache) validLocked() bool {
	if c.catalog == nil {
		return false
	}
	if c.config.TTL > 0 {
		return c.now().Sub(c.cachedAt) <= c.config.TTL
	}
	return true
}

// CatalogProvider serves the current catalog from a source through a cache
type CatalogProvider struct {
	source CatalogSource
	cache  CatalogCache
	mu     sync.Mutex // serializes loads so a miss triggers one Load
}

// NewCatalogProvider wires a source and a cache. A nil cache gets an
// in-memory one with the default config.
func NewCatalogProvider(source CatalogSource, cache CatalogCache) *CatalogProvider {
	if cache == nil {
		cache = NewInMemoryCatalogCache(DefaultCacheConfig())
	}
	return &CatalogProvider{source: source, cache: cache}
}

// Catalog returns the cached catalog, loading and validating it on a miss.
// A failed load leaves the cache empty.
func (p *CatalogProvider) Catalog(ctx context.Context) (*LoadedCatalog, error) {
	if c := p.cache.Get(); c != nil {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c := p.cache.Get(); c != nil {
		return c, nil
	}

	start := time.Now()
	snap, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	loaded, err := Build(snap)
	if err != nil {
		return nil, err
	}
	p.cache.Set(loaded)

	logger.Info("Catalog loaded",
		"product_classes", len(snap.ProductClasses),
		"categories", len(snap.Categories),
		"options", len(snap.Options),
		"rules", len(snap.Rules),
		"duration_ms", time.Since(start).Milliseconds())
	return loaded, nil
}

// Reload drops the cached catalog and loads it again. On failure the
// previous catalog is restored so running traffic keeps a valid one.
func (p *CatalogProvider) Reload(ctx context.Context) (*LoadedCatalog, error) {
	previous := p.cache.Get()
	p.cache.Invalidate()

	loaded, err := p.Catalog(ctx)
	if err != nil {
		if previous != nil {
			p.cache.Set(previous)
		}
		logger.Warn("Catalog reload failed", "error", err)
		return nil, err
	}
	return loaded, nil
}
