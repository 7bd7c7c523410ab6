package enrichment

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

// localCache fronts WarehouseCache with an in-process TTL cache so repeat
// lookups of the same key within one run (common across a large frame)
// don't round-trip to the database every time.
type localCache struct {
	c *cache.Cache
}

func newLocalCache(ttl time.Duration) *localCache {
	return &localCache{c: cache.New(ttl, ttl*2)}
}

func cacheKey(key string, lookupType models.LookupType) string {
	return string(lookupType) + ":" + key
}

func (l *localCache) get(key string, lookupType models.LookupType) (models.EnrichmentIndexRow, bool) {
	v, ok := l.c.Get(cacheKey(key, lookupType))
	if !ok {
		return models.EnrichmentIndexRow{}, false
	}
	row, ok := v.(models.EnrichmentIndexRow)
	return row, ok
}

func (l *localCache) set(key string, lookupType models.LookupType, row models.EnrichmentIndexRow) {
	l.c.SetDefault(cacheKey(key, lookupType), row)
}
