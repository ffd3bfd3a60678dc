package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const scanBatchSize = 100

type redisEntry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisStore keeps entries in Redis under "<prefix>:<key>". Redis drops keys
// once their TTL passes, so SweepExpired has nothing to do.
type RedisStore[V any] struct {
	client *redis.Client
	prefix string
	clock  quartz.Clock
}

func NewRedisStore[V any](client *redis.Client, prefix string, clock quartz.Clock) *RedisStore[V] {
	return &RedisStore[V]{
		client: client,
		prefix: prefix,
		clock:  clock,
	}
}

func (s *RedisStore[V]) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore[V]) encode(value V, expiresAt time.Time) ([]byte, time.Duration, error) {
	data, err := json.Marshal(redisEntry[V]{Value: value, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return nil, 0, err
	}
	return data, expiresAt.Sub(s.clock.Now()), nil
}

func (s *RedisStore[V]) decode(key, data string) (V, bool, error) {
	var zero V
	var e redisEntry[V]
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to unmarshal entry from cache")
		return zero, false, models.ErrRedisGet
	}
	if !e.ExpiresAt.After(s.clock.Now()) {
		return zero, false, nil
	}
	return e.Value, true, nil
}

func (s *RedisStore[V]) Put(ctx context.Context, key string, value V, expiresAt time.Time) error {
	data, ttl, err := s.encode(value, expiresAt)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal entry for cache")
		return models.ErrRedisSet
	}
	if ttl <= 0 {
		logrus.WithField("key", s.key(key)).Warn("Entry already expired, not caching")
		return nil
	}

	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", s.key(key)).Error("Failed to cache entry")
		return models.ErrRedisSet
	}
	return nil
}

func (s *RedisStore[V]) PutIfAbsent(ctx context.Context, key string, value V, expiresAt time.Time) (bool, error) {
	data, ttl, err := s.encode(value, expiresAt)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal entry for cache")
		return false, models.ErrRedisSet
	}
	if ttl <= 0 {
		return false, nil
	}

	ok, err := s.client.SetNX(ctx, s.key(key), data, ttl).Result()
	if err != nil {
		logrus.WithError(err).WithField("key", s.key(key)).Error("Failed to cache entry")
		return false, models.ErrRedisSet
	}
	return ok, nil
}

func (s *RedisStore[V]) GetIfLive(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		logrus.WithError(err).WithField("key", s.key(key)).Error("Failed to get entry from cache")
		return zero, false, models.ErrRedisGet
	}
	return s.decode(s.key(key), data)
}

// DeleteIfPresent relies on GETDEL so that lookup and removal are one command.
func (s *RedisStore[V]) DeleteIfPresent(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, err := s.client.GetDel(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		logrus.WithError(err).WithField("key", s.key(key)).Error("Failed to delete entry from cache")
		return zero, false, models.ErrRedisDelete
	}
	return s.decode(s.key(key), data)
}

func (s *RedisStore[V]) SweepExpired(context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore[V]) Len(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+":*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).WithField("prefix", s.prefix).Error("Failed to count cache entries")
		return 0, models.ErrRedisScan
	}
	return count, nil
}
