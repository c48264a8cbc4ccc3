package crm

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	leadsKey         = "leads"
	opportunitiesKey = "opportunities"
)

// CachedStore keeps a TTL snapshot of each record list. Failed fetches are not cached.
type CachedStore struct {
	next  RecordStore
	cache *cache.Cache
}

var _ RecordStore = (*CachedStore)(nil)

func NewCachedStore(next RecordStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedStore) GetLeads(ctx context.Context) ([]Record, error) {
	return c.get(ctx, leadsKey, c.next.GetLeads)
}

func (c *CachedStore) GetOpportunities(ctx context.Context) ([]Record, error) {
	return c.get(ctx, opportunitiesKey, c.next.GetOpportunities)
}

// Invalidate drops both snapshots so the next call refetches.
func (c *CachedStore) Invalidate() {
	c.cache.Flush()
}

func (c *CachedStore) get(ctx context.Context, key string, fetch func(context.Context) ([]Record, error)) ([]Record, error) {
	if cached, found := c.cache.Get(key); found {
		return cached.([]Record), nil
	}

	records, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, records, cache.DefaultExpiration)
	return records, nil
}
