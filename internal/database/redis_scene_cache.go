package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adventure-server/internal/interfaces"
	"adventure-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisSceneCache implements SceneCache.
var _ interfaces.SceneCache = (*redisSceneCache)(nil)

type redisSceneCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSceneCache creates a Redis-backed lookaside cache for scenes.
func NewRedisSceneCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.SceneCache {
	return &redisSceneCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSceneCache"),
	}
}

func sceneCacheKey(storyID uuid.UUID, sceneKey string) string {
	return fmt.Sprintf("scene:%s:%s", storyID, sceneKey)
}

// Get returns the cached scene or models.ErrSceneNotFound on a miss.
// Redis failures are reported as misses; Postgres stays authoritative.
func (c *redisSceneCache) Get(ctx context.Context, storyID uuid.UUID, sceneKey string) (*models.Scene, error) {
	key := sceneCacheKey(storyID, sceneKey)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSceneNotFound
		}
		c.logger.Warn("Scene cache read failed, treating as miss", zap.Error(err), zap.String("key", key))
		return nil, models.ErrSceneNotFound
	}

	scene := &models.Scene{}
	if err := json.Unmarshal(data, scene); err != nil {
		c.logger.Warn("Corrupt scene cache entry, treating as miss", zap.Error(err), zap.String("key", key))
		return nil, models.ErrSceneNotFound
	}
	return scene, nil
}

// Set stores the scene with the configured TTL.
func (c *redisSceneCache) Set(ctx context.Context, scene *models.Scene) error {
	key := sceneCacheKey(scene.StoryID, scene.SceneKey)
	data, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Scene cache write failed", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to cache scene %s: %w", key, err)
	}
	return nil
}
