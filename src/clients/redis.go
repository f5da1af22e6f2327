package clients

import (
	"context"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Configuration) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Url,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.Db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Error("Failed to connect to redis")
		return nil, models.ErrStorageConnection
	}

	log.WithField("addr", cfg.Storage.Redis.Url).Info("Connected to redis")
	return &RedisClient{Client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}
