package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/chatible/internal/cache"
	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/db"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestProfileRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	// miss
	p, err := c.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	want := &db.UserProfile{ID: "u1", Gender: db.GenderFemale, Balance: 3}
	require.NoError(t, c.SetProfile(ctx, want))
	assert.Equal(t, cache.ProfileTTL, mr.TTL("profile:u1"))

	got, err := c.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, db.GenderFemale, got.Gender)
	assert.Equal(t, int64(3), got.Balance)

	require.NoError(t, c.InvalidateProfile(ctx, "u1"))
	got, err = c.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCorruptProfileIsDropped(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, mr.Set("profile:u2", "{not json"))

	got, err := c.GetProfile(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("profile:u2"))
}

func TestFirstDelivery(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	first, err := c.FirstDelivery(ctx, "mid.1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := c.FirstDelivery(ctx, "mid.1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(2 * time.Minute)
	afterTTL, err := c.FirstDelivery(ctx, "mid.1", time.Minute)
	require.NoError(t, err)
	assert.True(t, afterTTL)
}

func TestFlushProfiles(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.SetProfile(ctx, &db.UserProfile{ID: "a"}))
	require.NoError(t, c.SetProfile(ctx, &db.UserProfile{ID: "b"}))
	require.NoError(t, mr.Set("webhook:mid:x", "1"))

	require.NoError(t, c.FlushProfiles(ctx))

	assert.False(t, mr.Exists("profile:a"))
	assert.False(t, mr.Exists("profile:b"))
	assert.True(t, mr.Exists("webhook:mid:x"))
}
