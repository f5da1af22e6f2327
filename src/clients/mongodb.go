package clients

import (
	"context"
	"time"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Configuration) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Storage.Mongo.Timeout)*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Storage.Mongo.Url))
	if err != nil {
		log.WithError(err).Error("Failed to connect to mongodb")
		return nil, models.ErrStorageConnection
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.WithError(err).Error("Failed to ping mongodb")
		return nil, models.ErrStorageConnection
	}

	log.WithField("db", cfg.Storage.Mongo.DbName).Info("Connected to mongodb")
	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.Storage.Mongo.DbName),
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
