package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-image-service/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ImageCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewImageCache(rdb, ttl), mr
}

func TestImageCache_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	got, err := c.Get(ctx, "goalimg:x")
	require.NoError(t, err)
	assert.Nil(t, got)

	c.Set(ctx, "goalimg:x", []byte{0x89, 'P', 'N', 'G'})
	got, err = c.Get(ctx, "goalimg:x")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got)
}

func TestImageCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, 0)
	assert.Equal(t, time.Minute, c.ttl)

	c.Set(context.Background(), "k", []byte("v"))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)
	got, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestImageCache_RedisDown(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	c.Set(context.Background(), "k", []byte("v"))
}

func TestKey_DependsOnRecordAndDims(t *testing.T) {
	rec := domain.RenderRecord{ID: 1, Type: "goal", Title: "Goal Event"}
	k1 := Key(rec, 900, 900)

	assert.Equal(t, k1, Key(rec, 900, 900))
	assert.NotEqual(t, k1, Key(rec, 1200, 630))

	rec.Data.Goals = 2
	assert.NotEqual(t, k1, Key(rec, 900, 900))
	assert.Contains(t, k1, "goalimg:")
}
