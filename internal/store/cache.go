package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// DefaultCacheTTL bounds how long a cached timetable is served.
const DefaultCacheTTL = 10 * time.Minute

// CachedStore is a read-through Redis cache in front of another Store.
// Redis failures are logged and the backing store is used directly.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = (*CachedStore)(nil)

// NewRedisClient builds a client for the given address and credentials.
func NewRedisClient(address, username, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
}

// NewCachedStore wraps backing with a Redis cache.
func NewCachedStore(backing Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{Store: backing, rdb: rdb, ttl: ttl}
}

func timetableKey(id string) string {
	return "timetable:" + id
}

func latestKey(mosqueName string) string {
	return "timetable:latest:" + model.MosqueKey(mosqueName)
}

func (c *CachedStore) SaveTimetable(ctx context.Context, t *model.Timetable) error {
	if err := c.Store.SaveTimetable(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, timetableKey(t.ID), latestKey(t.MosqueName))
	return nil
}

func (c *CachedStore) GetTimetable(ctx context.Context, id string) (*model.Timetable, error) {
	return c.readThrough(ctx, timetableKey(id), func() (*model.Timetable, error) {
		return c.Store.GetTimetable(ctx, id)
	})
}

func (c *CachedStore) GetLatestTimetable(ctx context.Context, mosqueName string) (*model.Timetable, error) {
	return c.readThrough(ctx, latestKey(mosqueName), func() (*model.Timetable, error) {
		return c.Store.GetLatestTimetable(ctx, mosqueName)
	})
}

func (c *CachedStore) DeleteTimetable(ctx context.Context, id string) error {
	t, err := c.Store.GetTimetable(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Store.DeleteTimetable(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, timetableKey(id), latestKey(t.MosqueName))
	return nil
}

func (c *CachedStore) readThrough(ctx context.Context, key string, load func() (*model.Timetable, error)) (*model.Timetable, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t model.Timetable
		decodeErr := json.Unmarshal(raw, &t)
		if decodeErr == nil {
			return &t, nil
		}
		log.Warn().Err(decodeErr).Str("component", "store").Str("key", key).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("component", "store").Str("key", key).Msg("cache read failed")
	}

	t, err := load()
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode timetable for cache: %w", err)
	}
	if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("component", "store").Str("key", key).Msg("cache write failed")
	}
	return t, nil
}

func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("component", "store").Strs("keys", keys).Msg("cache invalidation failed")
	}
}
