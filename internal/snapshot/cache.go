package snapshot

import (
	"sync"
	"time"

	"github.com/danielpatrickdp/entity-profile/internal/profile"
)

// #region cache-struct

type entityModel struct {
	totalUpdates int64
	sizeBytes    int64
	lastActive   time.Time
	active       bool
}

type cacheKey struct {
	detectorID string
	entity     string
}

// Cache holds the entity models hosted by this node. It is safe for
// concurrent use.
type Cache struct {
	mu     sync.RWMutex
	nodeID string
	models map[cacheKey]*entityModel
	now    func() time.Time
}

// NewCache creates an empty cache for the node nodeID.
func NewCache(nodeID string) *Cache {
	return &Cache{
		nodeID: nodeID,
		models: make(map[cacheKey]*entityModel),
		now:    time.Now,
	}
}

// NodeID returns the id reported in model profiles.
func (c *Cache) NodeID() string {
	return c.nodeID
}

// #endregion cache-struct

// #region mutations

// RecordSample counts one model update for the entity and marks it active.
// sizeBytes is the current serialized model size.
func (c *Cache) RecordSample(detectorID, entity string, sizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey{detectorID, entity}
	m, ok := c.models[k]
	if !ok {
		m = &entityModel{}
		c.models[k] = m
	}
	m.totalUpdates++
	m.sizeBytes = sizeBytes
	m.lastActive = c.now()
	m.active = true
}

// SetUpdates overwrites the update counter, e.g. when a model is restored
// from a checkpoint.
func (c *Cache) SetUpdates(detectorID, entity string, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey{detectorID, entity}
	m, ok := c.models[k]
	if !ok {
		m = &entityModel{lastActive: c.now()}
		c.models[k] = m
	}
	m.totalUpdates = total
}

// Restore installs an active model with the given counters, replacing any
// existing entry.
func (c *Cache) Restore(detectorID, entity string, total, sizeBytes int64, lastActive time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[cacheKey{detectorID, entity}] = &entityModel{
		totalUpdates: total,
		sizeBytes:    sizeBytes,
		lastActive:   lastActive,
		active:       true,
	}
}

// Evict marks the entity model inactive. Counters are kept so that later
// profiles still report progress.
func (c *Cache) Evict(detectorID, entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[cacheKey{detectorID, entity}]; ok {
		m.active = false
	}
}

// #endregion mutations

// #region snapshot

// Snapshot reports the state of one entity, limited to the fields that back
// the requested facets.
func (c *Cache) Snapshot(req Request) Snapshot {
	c.mu.RLock()
	m, ok := c.models[cacheKey{req.DetectorID, req.EntityValue}]
	var cp entityModel
	if ok {
		cp = *m
	}
	c.mu.RUnlock()

	var out Snapshot
	if req.Facets.StateRelated() && ok {
		out.TotalUpdates = cp.totalUpdates
	}
	if req.Facets.Has(profile.FacetEntityInfo) {
		active := ok && cp.active
		out.IsActive = &active
		if ok {
			ms := cp.lastActive.UnixMilli()
			out.LastActiveMs = &ms
		}
	}
	if req.Facets.Has(profile.FacetModels) && ok && cp.active {
		out.ModelProfile = &profile.ModelProfile{
			ModelID:   ModelID(req.DetectorID, req.EntityValue),
			NodeID:    c.nodeID,
			SizeBytes: cp.sizeBytes,
		}
	}
	return out
}

// #endregion snapshot
