package novelty

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ratewatch/internal/pkg/config"
	"ratewatch/internal/pkg/logger"
)

// Defines the interface for the long-term seen-signature set.
type History interface {
	Seen(signature string) bool
	Record(signature string)
}

// Implements History with Redis as the backing store. The singleton
// record file only remembers the latest sheet; the history remembers
// every sheet ever saved, so a re-published old sheet is still a
// duplicate, and several watch hosts can share one seen-set.
type redisHistory struct {
	client *redis.Client
	setKey string
}

// Creates a new Redis-backed history. Signatures live in a single
// Redis SET.
func NewRedisHistory(config *config.Config) (History, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.RedisHost, config.RedisPort),
		Password: config.RedisPassword, // "" if no auth
		DB:       config.RedisDB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Error("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Connected to Redis successfully",
		zap.String("host", config.RedisHost),
		zap.String("port", config.RedisPort),
	)

	return &redisHistory{
		client: rdb,
		setKey: "ratewatch_signatures",
	}, nil
}

// Checks whether the signature was ever recorded. Redis errors read as
// "not seen" so a flaky history can never block a save.
func (h *redisHistory) Seen(signature string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	exists, err := h.client.SIsMember(ctx, h.setKey, signature).Result()
	if err != nil {
		logger.Log.Error("Redis history lookup failed", zap.Error(err))
		return false
	}
	return exists
}

// Adds the signature to the seen-set.
func (h *redisHistory) Record(signature string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.client.SAdd(ctx, h.setKey, signature).Err(); err != nil {
		logger.Log.Error("Failed to record signature in Redis", zap.Error(err))
	}
}
