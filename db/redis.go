// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func CacheAgentConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig) error {
	if RedisClient == nil {
		return nil
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal agent config: %w", err)
	}

	key := fmt.Sprintf("agentconfig:%s", agentID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, configJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache agent config: %w", err)
	}

	logger.Debug("Agent config cached successfully", zap.String("agentID", agentID))
	return nil
}

func GetCachedAgentConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	if RedisClient == nil {
		return nil, nil
	}
	key := fmt.Sprintf("agentconfig:%s", agentID)
	configJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Agent config not found in cache", zap.String("agentID", agentID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get agent config from cache: %w", err)
	}

	var config model.AgentPermissionsConfig
	err = json.Unmarshal([]byte(configJSON), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent config: %w", err)
	}

	logger.Debug("Agent config retrieved from cache", zap.String("agentID", agentID))
	return &config, nil
}

func DeleteCachedAgentConfig(ctx context.Context, agentID string) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("agentconfig:%s", agentID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete agent config from cache: %w", err)
	}
	logger.Debug("Agent config deleted from cache", zap.String("agentID", agentID))
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
