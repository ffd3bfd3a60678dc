package clients

import (
	"context"
	"fmt"
	"time"

	"smart-time-tracker/src/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Redis) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.Db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithField("addr", cfg.Url).Info("Connected to Redis")

	return &RedisClient{Client: client}, nil
}

func (r *RedisClient) Close() error {
	if err := r.Client.Close(); err != nil {
		log.WithError(err).Error("Failed to close Redis connection")
		return err
	}
	log.Info("Redis connection closed")
	return nil
}
