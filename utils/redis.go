package utils

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniresearch/research-portal-backend/config"
)

// RedisClient is nil when REDIS_ADDR is not configured.
var RedisClient *redis.Client

// ErrRedisDisabled is returned by the helpers when Redis is not configured.
var ErrRedisDisabled = errors.New("redis is not configured")

// InitRedis connects to Redis when an address is configured. Running without
// Redis is allowed; callers fall back to in-process state.
func InitRedis(cfg *config.Config) error {
	if cfg.RedisAddr == "" {
		log.Println("ℹ️ REDIS_ADDR not set, running without Redis")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	RedisClient = client
	log.Printf("✅ Connected to Redis at %s", cfg.RedisAddr)
	return nil
}

// SetToken stores value under key for ttl.
func SetToken(key, value string, ttl time.Duration) error {
	if RedisClient == nil {
		return ErrRedisDisabled
	}
	return RedisClient.Set(context.Background(), key, value, ttl).Err()
}

// GetToken returns the value stored under key, or redis.Nil when absent.
func GetToken(key string) (string, error) {
	if RedisClient == nil {
		return "", ErrRedisDisabled
	}
	return RedisClient.Get(context.Background(), key).Result()
}

// DeleteToken removes key.
func DeleteToken(key string) error {
	if RedisClient == nil {
		return ErrRedisDisabled
	}
	return RedisClient.Del(context.Background(), key).Err()
}

// CloseRedis closes the shared client if one was opened.
func CloseRedis() {
	if RedisClient != nil {
		_ = RedisClient.Close()
	}
}
