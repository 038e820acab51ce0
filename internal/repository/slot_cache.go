package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	reservationDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSlotCache caches per-station slot grids. Each station has a
// generation counter that is part of every grid key; invalidating a station
// bumps its generation, so grids computed before the bump land under a key no
// reader uses and age out with the TTL. Failures are logged and treated as
// misses.
type RedisSlotCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSlotCache creates a slot cache whose entries live for ttl.
func NewRedisSlotCache(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisSlotCache {
	return &RedisSlotCache{rdb: rdb, ttl: ttl, logger: logger}
}

type cachedSlot struct {
	Start     time.Time `json:"s"`
	End       time.Time `json:"e"`
	Available bool      `json:"a"`
}

func slotKey(resourceID uuid.UUID, gen int64, date string, minutes int) string {
	return fmt.Sprintf("availability:slots:%s:%d:%s:%d", resourceID, gen, date, minutes)
}

func slotGenKey(resourceID uuid.UUID) string {
	return "availability:gen:" + resourceID.String()
}

// Get returns the cached grid, if present, and the station generation it was
// looked up under. A negative generation means the cache is unusable and a
// later Set is skipped.
func (c *RedisSlotCache) Get(ctx context.Context, resourceID uuid.UUID, date string, minutes int) ([]reservationDomain.TimeSlot, int64, bool) {
	gen, err := c.rdb.Get(ctx, slotGenKey(resourceID)).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		c.logger.Warn("slot cache read failed", zap.Error(err))
		return nil, -1, false
	}

	raw, err := c.rdb.Get(ctx, slotKey(resourceID, gen, date, minutes)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("slot cache read failed", zap.Error(err))
		}
		return nil, gen, false
	}
	var cached []cachedSlot
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.Warn("slot cache entry corrupt", zap.String("resource_id", resourceID.String()), zap.Error(err))
		return nil, gen, false
	}
	out := make([]reservationDomain.TimeSlot, len(cached))
	for i, s := range cached {
		out[i] = reservationDomain.TimeSlot{Start: s.Start, End: s.End, Available: s.Available}
	}
	return out, gen, true
}

// Set stores a grid under the generation returned by the Get that missed.
// If the station was invalidated since, the grid is unreachable.
func (c *RedisSlotCache) Set(ctx context.Context, resourceID uuid.UUID, date string, minutes int, gen int64, slots []reservationDomain.TimeSlot) {
	if gen < 0 {
		return
	}
	cached := make([]cachedSlot, len(slots))
	for i, s := range slots {
		cached[i] = cachedSlot{Start: s.Start, End: s.End, Available: s.Available}
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("slot cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, slotKey(resourceID, gen, date, minutes), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached grid of the given stations by bumping their
// generations.
func (c *RedisSlotCache) Invalidate(ctx context.Context, resourceIDs ...uuid.UUID) {
	if len(resourceIDs) == 0 {
		return
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range resourceIDs {
			pipe.Incr(ctx, slotGenKey(id))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("slot cache invalidation failed", zap.Int("resources", len(resourceIDs)), zap.Error(err))
	}
}
