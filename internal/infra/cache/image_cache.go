package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/logging"
)

const opTimeout = 1 * time.Second

// ImageCache keeps recently rendered PNGs in Redis so identical records are
// not rendered twice.
type ImageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewImageCache returns a cache over rdb. A non-positive ttl defaults to one minute.
func NewImageCache(rdb *redis.Client, ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		ttl = 1 * time.Minute
	}
	return &ImageCache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key from the record contents and output dimensions.
func Key(rec domain.RenderRecord, width, height int) string {
	h := sha256.New()
	body, _ := json.Marshal(rec)
	h.Write(body)
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{'x'})
	h.Write([]byte(strconv.Itoa(height)))
	return "goalimg:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached PNG, or nil without error on a miss.
func (c *ImageCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	png, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, err
	}
	logging.Info("Image cache hit", "key", key)
	return png, nil
}

// Set stores png under key. Failures are logged and otherwise ignored.
func (c *ImageCache) Set(ctx context.Context, key string, png []byte) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, png, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
