package commands

import (
	"context"
	"fmt"

	"github.com/giygas/drugbase-api/cache"
	"github.com/giygas/drugbase-api/config"
	"github.com/giygas/drugbase-api/ingest"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/store"
)

// openStore connects to the configured database and applies the schema
func openStore(ctx context.Context, c *config.Config) (*store.Store, error) {
	dialect, err := store.ParseDialect(c.DBDriver)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Dialect:      dialect,
		DSN:          c.DBDSN,
		QueryTimeout: c.DBQueryTimeout,
		BulkTimeout:  c.IngestTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logging.Debug("Store ready", "dialect", dialect.String())
	return st, nil
}

// newCache builds the configured search cache. It returns nil for the none
// backend.
func newCache(ctx context.Context, c *config.Config) (interfaces.Cache, error) {
	switch c.CacheBackend {
	case config.CacheMemory:
		return cache.NewMemory(c.CacheTTL, cache.DefaultMaxEntries), nil
	case config.CacheRedis:
		rc, err := cache.NewRedis(ctx, c.RedisAddr, c.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	default:
		return nil, nil
	}
}

// catalog bundles the store with the cache in front of it
type catalog struct {
	store *store.Store
	cache interfaces.Cache
	// cached is nil without a cache backend
	cached *cache.Catalog
}

func openCatalog(ctx context.Context, c *config.Config) (*catalog, error) {
	st, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	sc, err := newCache(ctx, c)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	cat := &catalog{store: st, cache: sc}
	if sc != nil {
		cat.cached = cache.Wrap(st, sc)
	}
	return cat, nil
}

// Catalog returns what the HTTP layer should query
func (c *catalog) Catalog() interfaces.Catalog {
	if c.cached != nil {
		return c.cached
	}
	return c.store
}

// invalidator returns the cache purger for loaders, or nil
func (c *catalog) invalidator() ingest.Invalidator {
	if c.cached != nil {
		return c.cached
	}
	return nil
}

func (c *catalog) Close() {
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			logging.Warn("Failed to close cache", "error", err)
		}
	}
	if err := c.store.Close(); err != nil {
		logging.Warn("Failed to close store", "error", err)
	}
}
