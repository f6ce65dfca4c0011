package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipforge/clipforge/pkg/models"
)

// Cache stores probe metadata in Redis so repeated reads of an unchanged
// source do not re-invoke ffprobe.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance.
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// probeKey hashes the source path so arbitrary path bytes make a safe key.
func probeKey(sourcePath string) string {
	sum := sha256.Sum256([]byte(sourcePath))
	return "probe:" + hex.EncodeToString(sum[:16])
}

// SetMediaInfo caches probe metadata for a source path.
func (c *Cache) SetMediaInfo(ctx context.Context, sourcePath string, info *models.MediaInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal media info: %w", err)
	}
	return c.client.Set(ctx, probeKey(sourcePath), data, ttl).Err()
}

// GetMediaInfo retrieves cached probe metadata; a miss returns (nil, nil).
func (c *Cache) GetMediaInfo(ctx context.Context, sourcePath string) (*models.MediaInfo, error) {
	data, err := c.client.Get(ctx, probeKey(sourcePath)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, fmt.Errorf("failed to get media info from cache: %w", err)
	}

	var info models.MediaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media info: %w", err)
	}

	return &info, nil
}

// InvalidateMediaInfo drops cached metadata for a source path, used when a
// project's source reference changes.
func (c *Cache) InvalidateMediaInfo(ctx context.Context, sourcePath string) error {
	return c.client.Del(ctx, probeKey(sourcePath)).Err()
}
