// Package cache keeps compiled index snapshots in redis so hot product types
// skip the database on every validation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

const DefaultTTL = 30 * time.Minute

type SnapshotCache interface {
	// Get reports a miss with nil, nil. An entry that no longer decodes is
	// evicted and reported as a miss.
	Get(ctx context.Context, productTypeID uuid.UUID, version int) (*index.Snapshot, error)
	Set(ctx context.Context, snap *index.Snapshot) error
	Invalidate(ctx context.Context, productTypeID uuid.UUID, version int) error
}

// Key is the redis key of a snapshot. Snapshots of published versions never
// change, so the version is part of the key.
func Key(productTypeID uuid.UUID, version int) string {
	return fmt.Sprintf("catalog:snapshot:%s:v%d", productTypeID, version)
}

type redisSnapshotCache struct {
	rdb     goredis.UniversalClient
	ttl     time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewRedisSnapshotCache(rdb goredis.UniversalClient, ttl time.Duration, baseLog *logger.Logger, metrics *observability.Metrics) SnapshotCache {
	if rdb == nil {
		return Noop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisSnapshotCache{rdb: rdb, ttl: ttl, log: baseLog.With("cache", "SnapshotCache"), metrics: metrics}
}

func (c *redisSnapshotCache) Get(ctx context.Context, productTypeID uuid.UUID, version int) (*index.Snapshot, error) {
	key := Key(productTypeID, version)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		c.metrics.IncSnapshotCache("miss")
		return nil, nil
	}
	if err != nil {
		c.metrics.IncSnapshotCache("error")
		return nil, err
	}
	snap, err := index.UnmarshalSnapshot(raw)
	if err != nil {
		c.metrics.IncSnapshotCache("corrupt")
		c.log.Warn("evicting undecodable snapshot", "key", key, "error", err)
		_ = c.Invalidate(ctx, productTypeID, version)
		return nil, nil
	}
	c.metrics.IncSnapshotCache("hit")
	return snap, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, snap *index.Snapshot) error {
	if snap == nil {
		return nil
	}
	raw, err := snap.Marshal()
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, Key(snap.ProductTypeID, snap.Version), raw, c.ttl).Err()
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context, productTypeID uuid.UUID, version int) error {
	return c.rdb.Del(ctx, Key(productTypeID, version)).Err()
}

type noopSnapshotCache struct{}

// Noop never stores anything.
func Noop() SnapshotCache { return noopSnapshotCache{} }

func (noopSnapshotCache) Get(context.Context, uuid.UUID, int) (*index.Snapshot, error) { return nil, nil }
func (noopSnapshotCache) Set(context.Context, *index.Snapshot) error                   { return nil }
func (noopSnapshotCache) Invalidate(context.Context, uuid.UUID, int) error             { return nil }
