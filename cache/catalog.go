package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/metrics"
)

var _ interfaces.Catalog = (*Catalog)(nil)

// Catalog serves searches from a cache and forwards everything else to the
// wrapped catalog. Every successful mutation purges the cache. Cache failures
// are logged and the request falls through to storage.
//
// A page loaded before a purge is never stored after it: Invalidate bumps a
// generation under the write lock and fills only happen, under the read lock,
// when the generation seen before the load is still current.
type Catalog struct {
	interfaces.Catalog
	cache interfaces.Cache

	mu  sync.RWMutex
	gen uint64
}

// Wrap puts cache in front of the searches of next
func Wrap(next interfaces.Catalog, cache interfaces.Cache) *Catalog {
	return &Catalog{Catalog: next, cache: cache}
}

func cached[T any](ctx context.Context, c *Catalog, query, key string, load func() (T, error)) (T, error) {
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		logging.Warn("Search cache read failed", "query", query, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheLookup(query, true)
			return v, nil
		}
		logging.Warn("Discarding undecodable cache entry", "query", query, "key", key)
	}
	metrics.CacheLookup(query, false)

	gen := c.generation()
	v, err := load()
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	c.fill(ctx, query, key, raw, gen)
	return v, nil
}

func (c *Catalog) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// fill stores a page unless the cache was purged since gen was read
func (c *Catalog) fill(ctx context.Context, query, key string, raw []byte, gen uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen != gen {
		logging.Debug("Dropping search page loaded before a purge", "query", query)
		return
	}
	if err := c.cache.Set(ctx, key, raw); err != nil {
		logging.Warn("Search cache write failed", "query", query, "error", err)
	}
}

func (c *Catalog) DrugSearch(ctx context.Context, idFrom int64, prefix string, limit int) ([]entities.DrugRow, error) {
	key := fmt.Sprintf("drug:%d:%d:%s", idFrom, limit, prefix)
	return cached(ctx, c, "drug_search", key, func() ([]entities.DrugRow, error) {
		return c.Catalog.DrugSearch(ctx, idFrom, prefix, limit)
	})
}

func (c *Catalog) DiseaseSearch(ctx context.Context, idFrom int64, prefix string, limit int) ([]entities.DiseaseRow, error) {
	key := fmt.Sprintf("disease:%d:%d:%s", idFrom, limit, prefix)
	return cached(ctx, c, "disease_search", key, func() ([]entities.DiseaseRow, error) {
		return c.Catalog.DiseaseSearch(ctx, idFrom, prefix, limit)
	})
}

func (c *Catalog) MultiDiseaseTreatment(ctx context.Context, idFrom int64, minDiseases int) ([]entities.MultiDiseaseRow, error) {
	key := fmt.Sprintf("multi:%d:%d", idFrom, minDiseases)
	return cached(ctx, c, "multi_disease_treatment", key, func() ([]entities.MultiDiseaseRow, error) {
		return c.Catalog.MultiDiseaseTreatment(ctx, idFrom, minDiseases)
	})
}

func (c *Catalog) DrugDescription(ctx context.Context, name string) ([]string, error) {
	return cached(ctx, c, "drug_description", "description:"+name, func() ([]string, error) {
		return c.Catalog.DrugDescription(ctx, name)
	})
}

// Invalidate drops every cached page. Loaders that write to storage directly
// call it after a successful load.
func (c *Catalog) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if err := c.cache.Purge(ctx); err != nil {
		logging.Error("Search cache purge failed, stale pages may be served until they expire", "error", err)
	}
}

// invalidateAfter purges the cache when a mutation returned no error
func invalidateAfter[T any](ctx context.Context, c *Catalog, v T, err error) (T, error) {
	if err == nil {
		c.Invalidate(ctx)
	}
	return v, err
}

func (c *Catalog) InsertManufacturer(ctx context.Context, name string) (int64, error) {
	id, err := c.Catalog.InsertManufacturer(ctx, name)
	return invalidateAfter(ctx, c, id, err)
}

func (c *Catalog) InsertDrug(ctx context.Context, d entities.Drug) (int64, error) {
	id, err := c.Catalog.InsertDrug(ctx, d)
	return invalidateAfter(ctx, c, id, err)
}

func (c *Catalog) InsertGeneric(ctx context.Context, g entities.Generic) (int64, error) {
	id, err := c.Catalog.InsertGeneric(ctx, g)
	return invalidateAfter(ctx, c, id, err)
}

func (c *Catalog) InsertDisease(ctx context.Context, name string) (int64, error) {
	id, err := c.Catalog.InsertDisease(ctx, name)
	return invalidateAfter(ctx, c, id, err)
}

func (c *Catalog) InsertTreatment(ctx context.Context, t entities.Treatment) error {
	err := c.Catalog.InsertTreatment(ctx, t)
	if err == nil {
		c.Invalidate(ctx)
	}
	return err
}

func (c *Catalog) RenameManufacturer(ctx context.Context, id int64, name string) (bool, error) {
	found, err := c.Catalog.RenameManufacturer(ctx, id, name)
	return invalidateAfter(ctx, c, found, err)
}

func (c *Catalog) DeleteDrug(ctx context.Context, id int64) (bool, error) {
	found, err := c.Catalog.DeleteDrug(ctx, id)
	return invalidateAfter(ctx, c, found, err)
}
