// Package cache provides in-memory caching for the MCP server.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// AlertCache is a thread-safe LRU over resolved alert detail records, keyed
// by "<tenant>/<composite id>". Alert details are immutable once created, so
// no TTL is needed; the LRU bound alone keeps memory flat.
type AlertCache struct {
	cache *lru.Cache[string, edr.Record]
}

// NewAlertCache creates an LRU holding at most maxItems alert records.
func NewAlertCache(maxItems int) (*AlertCache, error) {
	c, err := lru.New[string, edr.Record](maxItems)
	if err != nil {
		return nil, err
	}
	return &AlertCache{cache: c}, nil
}

// Get retrieves a cached alert record.
func (c *AlertCache) Get(tenant, alertID string) (edr.Record, bool) {
	return c.cache.Get(tenant + "/" + alertID)
}

// Put stores an alert record.
func (c *AlertCache) Put(tenant, alertID string, rec edr.Record) {
	c.cache.Add(tenant+"/"+alertID, rec)
}

// Len returns the current number of cached records.
func (c *AlertCache) Len() int {
	return c.cache.Len()
}
