// Package cache holds the in-process evaluation snapshot cache. A snapshot
// bundles everything one evaluation needs (flag, per-environment state,
// project segments) so the hot path does a single cache lookup instead of
// three queries.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"flagbase/entity"

	"github.com/dgraph-io/ristretto"
)

// Snapshot is the cached read model for one (flag, environment) pair
type Snapshot struct {
	Flag     *entity.FeatureFlag
	State    *entity.FlagState
	Segments []*entity.Segment
}

// SnapshotCache wraps ristretto with TTL-bound entries and wholesale
// invalidation. Mutations bump an epoch that is part of every key, so
// stale entries become unreachable and age out under the cost ceiling.
// A nil *SnapshotCache is valid and behaves as a cache that never hits.
type SnapshotCache struct {
	store *ristretto.Cache
	ttl   time.Duration
	epoch atomic.Uint64
}

// NewSnapshotCache creates a snapshot cache with the given TTL and
// maximum memory cost in bytes.
func NewSnapshotCache(ttl time.Duration, maxCost int64) (*SnapshotCache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	return &SnapshotCache{store: store, ttl: ttl}, nil
}

// Get returns the cached snapshot for a flag in an environment, if any
func (c *SnapshotCache) Get(flagKey, envKey string) (*Snapshot, bool) {
	if c == nil {
		return nil, false
	}
	value, found := c.store.Get(c.key(flagKey, envKey))
	if !found {
		return nil, false
	}
	snapshot, ok := value.(*Snapshot)
	return snapshot, ok
}

// Set stores a snapshot under the current epoch
func (c *SnapshotCache) Set(flagKey, envKey string, snapshot *Snapshot) {
	if c == nil {
		return
	}
	c.store.SetWithTTL(c.key(flagKey, envKey), snapshot, 1, c.ttl)
}

// Invalidate makes every cached snapshot unreachable. Called after any
// flag, state, segment or environment mutation; correctness over
// granularity, since entries are rebuilt on the next evaluation anyway.
func (c *SnapshotCache) Invalidate() {
	if c == nil {
		return
	}
	c.epoch.Add(1)
}

// Close releases the underlying cache resources
func (c *SnapshotCache) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}

func (c *SnapshotCache) key(flagKey, envKey string) string {
	return fmt.Sprintf("%d:%s:%s", c.epoch.Load(), flagKey, envKey)
}
