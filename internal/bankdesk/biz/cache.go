package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/bankdesk/internal/model"
	"github.com/kart-io/bankdesk/internal/pkg/rag/textutil"
)

// AnswerCacheConfig configures the Redis-backed answer cache.
type AnswerCacheConfig struct {
	// Enabled toggles the cache.
	Enabled bool
	// TTL is how long a cached answer stays valid.
	TTL time.Duration
	// KeyPrefix namespaces cache keys.
	KeyPrefix string
}

// AnswerCache caches complete pipeline results keyed by the normalized
// question, so repeated questions skip the whole pipeline.
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache creates an answer cache instance.
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "bankdesk:answer:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// Enabled reports whether the cache is active.
func (c *AnswerCache) Enabled() bool {
	return c.config.Enabled && c.redis != nil
}

// cacheKey hashes the normalized question so case and whitespace variants
// share an entry.
func (c *AnswerCache) cacheKey(question string) string {
	hash := sha256.Sum256([]byte(textutil.NormalizeQuestion(question)))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached result for a question, or nil on a miss.
func (c *AnswerCache) Get(ctx context.Context, question string) (*model.PipelineResult, error) {
	if !c.Enabled() {
		return nil, nil
	}

	key := c.cacheKey(question)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("answer cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached answer, dropping entry", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("answer cache hit", "key", key, "answer_length", len(result.Answer))
	return &result, nil
}

// Set stores a pipeline result for the question.
func (c *AnswerCache) Set(ctx context.Context, question string, result *model.PipelineResult) error {
	if !c.Enabled() {
		return nil
	}

	key := c.cacheKey(question)

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal result for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return err
	}

	logger.Debugw("cached pipeline result", "key", key, "ttl", c.config.TTL)
	return nil
}

// Clear removes every cached answer.
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared answer cache", "deleted_count", deleted)
	return nil
}

// Stats reports cache status and entry count.
func (c *AnswerCache) Stats(ctx context.Context) (map[string]any, error) {
	if !c.Enabled() {
		return map[string]any{"enabled": false}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	count := 0
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"enabled": true,
		"entries": count,
		"ttl":     c.config.TTL.String(),
	}, nil
}
