package storage

import (
	"context"
	"errors"

	"buildhub-client/src/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type redisStorage struct {
	client *redis.Client
	key    string
}

// NewRedis returns snapshot storage backed by a single redis key. The
// snapshot has no TTL; it lives until Clear or the next Save overwrites it.
func NewRedis(client *redis.Client, key string) Storage {
	return &redisStorage{client: client, key: key}
}

func (s *redisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("key", s.key).Debug("Session snapshot not found in redis")
			return nil, models.ErrSnapshotNotFound
		}
		logrus.WithError(err).WithField("key", s.key).Error("Failed to load session snapshot from redis")
		return nil, models.ErrStorageGet
	}

	logrus.WithField("key", s.key).Debug("Session snapshot loaded from redis")
	return data, nil
}

func (s *redisStorage) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		logrus.WithError(err).WithField("key", s.key).Error("Failed to save session snapshot to redis")
		return models.ErrStorageSet
	}

	logrus.WithField("key", s.key).Debug("Session snapshot saved to redis")
	return nil
}

func (s *redisStorage) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		logrus.WithError(err).WithField("key", s.key).Error("Failed to clear session snapshot in redis")
		return models.ErrStorageDelete
	}
	return nil
}
