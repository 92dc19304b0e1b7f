package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheKey = "pairing:snapshot:v1"

// CachedSource is a read-through Redis cache in front of another Source. Cache failures are
// logged and bypassed; only the underlying source can fail a load.
type CachedSource struct {
	next   Source
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedSource caches next's snapshots under key for ttl. A zero ttl keeps entries until
// Invalidate is called.
func NewCachedSource(next Source, client *redis.Client, key string, ttl time.Duration, log logger.Logger) *CachedSource {
	if key == "" {
		key = DefaultCacheKey
	}
	return &CachedSource{
		next:   next,
		redis:  client,
		key:    key,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot.cache", "cacheKey": key}),
	}
}

func (c *CachedSource) Load(ctx context.Context) (*models.Snapshot, error) {
	if snap, ok := c.get(ctx); ok {
		return snap, nil
	}

	snap, err := c.next.Load(ctx)
	if err != nil {
		return nil, err
	}

	c.set(ctx, snap)
	return snap, nil
}

// LoadPairHistory delegates to the underlying source when it can read pair history.
func (c *CachedSource) LoadPairHistory(ctx context.Context, affiliateID1, affiliateID2 string, limit int) ([]models.Transaction, error) {
	loader, ok := c.next.(PairHistoryLoader)
	if !ok {
		return nil, errors.New("underlying snapshot source cannot load pair history")
	}
	return loader.LoadPairHistory(ctx, affiliateID1, affiliateID2, limit)
}

// Invalidate drops the cached snapshot so the next Load reads through.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, c.key).Err()
}

func (c *CachedSource) get(ctx context.Context) (*models.Snapshot, bool) {
	val, err := c.redis.Get(ctx, c.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("snapshot cache unavailable", map[string]interface{}{"error": err})
		}
		return nil, false
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		c.logger.Warn("discarding corrupt snapshot cache entry", map[string]interface{}{"error": err})
		return nil, false
	}

	c.logger.Debug("snapshot cache hit", map[string]interface{}{
		"loadedAt": snap.LoadedAt,
	})
	return &snap, true
}

func (c *CachedSource) set(ctx context.Context, snap *models.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("snapshot not cacheable", map[string]interface{}{"error": err})
		return
	}
	if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache snapshot", map[string]interface{}{"error": err})
	}
}
