package storage

import (
	"context"
	"errors"
	"time"

	"buildhub-client/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStorage struct {
	collection *mongo.Collection
	key        string
}

type snapshotDocument struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongo returns snapshot storage backed by a single document keyed by the
// storage namespace.
func NewMongo(collection *mongo.Collection, key string) Storage {
	return &mongoStorage{collection: collection, key: key}
}

func (s *mongoStorage) Load(ctx context.Context) ([]byte, error) {
	var doc snapshotDocument
	filter := bson.M{"_id": s.key}

	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logrus.WithField("key", s.key).Debug("Session snapshot not found in mongodb")
			return nil, models.ErrSnapshotNotFound
		}
		logrus.WithError(err).WithField("key", s.key).Error("Failed to load session snapshot from mongodb")
		return nil, models.ErrStorageGet
	}

	return doc.Data, nil
}

func (s *mongoStorage) Save(ctx context.Context, data []byte) error {
	filter := bson.M{"_id": s.key}
	update := bson.M{
		"$set": bson.M{
			"data":       data,
			"updated_at": time.Now(),
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		logrus.WithError(err).WithField("key", s.key).Error("Failed to save session snapshot to mongodb")
		return models.ErrStorageSet
	}

	return nil
}

func (s *mongoStorage) Clear(ctx context.Context) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.key})
	if err != nil {
		logrus.WithError(err).WithField("key", s.key).Error("Failed to clear session snapshot in mongodb")
		return models.ErrStorageDelete
	}
	return nil
}
