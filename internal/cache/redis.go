package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/db"
)

// ProfileTTL bounds how long a cached profile survives without being read.
const ProfileTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForProfile generates Redis key for a user's cached profile
func (c *RedisCache) KeyForProfile(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

// GetProfile returns the cached profile, or nil on a cache miss.
func (c *RedisCache) GetProfile(ctx context.Context, userID string) (*db.UserProfile, error) {
	key := c.KeyForProfile(userID)
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // cache miss
	} else if err != nil {
		return nil, err
	}

	var p db.UserProfile
	if err := json.Unmarshal(val, &p); err != nil {
		// corrupt entry, drop it so the next read goes to the DB
		_ = c.Client.Del(ctx, key).Err()
		return nil, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, ProfileTTL).Err()
	return &p, nil
}

// SetProfile stores the profile; always refreshes TTL.
func (c *RedisCache) SetProfile(ctx context.Context, p *db.UserProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return c.Client.Set(ctx, c.KeyForProfile(p.ID), b, ProfileTTL).Err()
}

// InvalidateProfile drops the cached profile after a write.
func (c *RedisCache) InvalidateProfile(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, c.KeyForProfile(userID)).Err()
}

// KeyForDelivery generates Redis key for an inbound message id
func (c *RedisCache) KeyForDelivery(mid string) string {
	return fmt.Sprintf("webhook:mid:%s", mid)
}

// FirstDelivery records mid and reports whether it had not been seen within ttl.
// Messenger redelivers webhooks it considers unacknowledged.
func (c *RedisCache) FirstDelivery(ctx context.Context, mid string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, c.KeyForDelivery(mid), 1, ttl).Result()
}

// FlushProfiles removes every cached profile; used by ResetAll.
func (c *RedisCache) FlushProfiles(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, "profile:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}
